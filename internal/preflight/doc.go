// Package preflight provides readiness checks for the directories and
// remote APIs the delivery pipeline depends on.
//
// These checks run in two contexts:
//   - The daemon calls CheckEnvironment and CheckConnectivity at startup.
//     Environment failures abort the start; connectivity failures are
//     logged and tolerated, since both APIs can recover while running.
//   - The CLI "hikari status" command renders RunAll for display.
package preflight
