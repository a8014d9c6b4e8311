package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"hikari/internal/fileutil"
	"hikari/internal/services"
)

// fetchSubtitle downloads a subtitle file to path and returns its size.
func (p *Pipeline) fetchSubtitle(ctx context.Context, rawURL, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrSubtitle, string(StateDeliveringSubtitle), "fetch", "create request", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrSubtitle, string(StateDeliveringSubtitle), "fetch", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, services.Wrap(services.ErrSubtitle, string(StateDeliveringSubtitle), "fetch",
			fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	if err := fileutil.EnsureParent(path); err != nil {
		return 0, services.Wrap(services.ErrSubtitle, string(StateDeliveringSubtitle), "store", "create directory", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, services.Wrap(services.ErrSubtitle, string(StateDeliveringSubtitle), "store", "create file", err)
	}

	size, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		fileutil.RemoveQuiet(path)
		return 0, services.Wrap(services.ErrSubtitle, string(StateDeliveringSubtitle), "store", "write file", err)
	}
	if err := out.Close(); err != nil {
		fileutil.RemoveQuiet(path)
		return 0, services.Wrap(services.ErrSubtitle, string(StateDeliveringSubtitle), "store", "close file", err)
	}
	return size, nil
}
