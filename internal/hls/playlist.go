package hls

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/grafov/m3u8"

	"hikari/internal/services"
)

// segment is one downloadable media segment with its decryption key
// reference already resolved to an absolute URL.
type segment struct {
	url    string
	keyURI string
	ivHex  string
	seqID  uint64
}

// fetchSegments loads the manifest at manifestURL and flattens it into the
// ordered segment list. A master playlist is followed to its
// highest-bandwidth variant; nesting deeper than that is rejected.
func (d *Downloader) fetchSegments(ctx context.Context, manifestURL string) ([]segment, error) {
	current := manifestURL
	for hop := 0; hop < 2; hop++ {
		body, err := d.fetchBytes(ctx, current)
		if err != nil {
			return nil, services.Wrap(services.ErrDownload, "download", "manifest", current, err)
		}

		playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), true)
		if err != nil {
			return nil, services.Wrap(services.ErrDownload, "download", "manifest", "parse playlist", err)
		}

		switch listType {
		case m3u8.MEDIA:
			media, ok := playlist.(*m3u8.MediaPlaylist)
			if !ok {
				return nil, services.Wrap(services.ErrDownload, "download", "manifest", "unexpected playlist type", nil)
			}
			return flattenMedia(media, current)
		case m3u8.MASTER:
			master, ok := playlist.(*m3u8.MasterPlaylist)
			if !ok {
				return nil, services.Wrap(services.ErrDownload, "download", "manifest", "unexpected playlist type", nil)
			}
			variantURL, err := pickVariant(master, current)
			if err != nil {
				return nil, err
			}
			current = variantURL
		default:
			return nil, services.Wrap(services.ErrDownload, "download", "manifest", "unrecognized playlist", nil)
		}
	}
	return nil, services.Wrap(services.ErrDownload, "download", "manifest", "nested master playlists", nil)
}

// pickVariant chooses the highest-bandwidth variant of a master playlist.
func pickVariant(master *m3u8.MasterPlaylist, baseURL string) (string, error) {
	var best *m3u8.Variant
	for _, variant := range master.Variants {
		if variant == nil || variant.URI == "" {
			continue
		}
		if best == nil || variant.Bandwidth > best.Bandwidth {
			best = variant
		}
	}
	if best == nil {
		return "", services.Wrap(services.ErrDownload, "download", "manifest", "master playlist has no variants", nil)
	}
	resolved, err := resolveURL(baseURL, best.URI)
	if err != nil {
		return "", services.Wrap(services.ErrDownload, "download", "manifest", "resolve variant url", err)
	}
	return resolved, nil
}

// flattenMedia turns a media playlist into ordered segments, carrying the
// active EXT-X-KEY forward until the next one replaces it. Media sequence
// numbers start at EXT-X-MEDIA-SEQUENCE and increment per segment.
func flattenMedia(media *m3u8.MediaPlaylist, baseURL string) ([]segment, error) {
	activeKey := media.Key
	segments := make([]segment, 0, len(media.Segments))
	for _, seg := range media.Segments {
		if seg == nil || seg.URI == "" {
			continue
		}
		if seg.Key != nil {
			activeKey = seg.Key
		}

		segURL, err := resolveURL(baseURL, seg.URI)
		if err != nil {
			return nil, services.Wrap(services.ErrDownload, "download", "manifest", "resolve segment url", err)
		}
		entry := segment{url: segURL, seqID: media.SeqNo + uint64(len(segments))}
		if activeKey != nil && activeKey.Method != "" && activeKey.Method != "NONE" {
			if activeKey.Method != "AES-128" {
				return nil, services.Wrap(services.ErrDownload, "download", "manifest",
					fmt.Sprintf("unsupported encryption method %q", activeKey.Method), nil)
			}
			keyURL, err := resolveURL(baseURL, activeKey.URI)
			if err != nil {
				return nil, services.Wrap(services.ErrDownload, "download", "manifest", "resolve key url", err)
			}
			entry.keyURI = keyURL
			entry.ivHex = activeKey.IV
		}
		segments = append(segments, entry)
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrDownload, "download", "manifest", "playlist contains no segments", nil)
	}
	return segments, nil
}

func resolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
