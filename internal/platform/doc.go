// Package platform drives the Railway CLI for streaming deployment
// logs.
//
// The launcher resolves the railway binary on PATH and, when it is
// missing, offers to install it globally through npm. Every outcome of
// that flow maps to a typed CLIError so the command layer can exit
// with a meaningful code: declined installs cancel, a missing npm
// points the user at Node.js, and a failed install surfaces npm's own
// output. Once resolved, the CLI is attached directly to the user's
// terminal — its exit code is the stream's exit code.
package platform
