package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/Masterminds/semver/v3"
)

// npmRegistryURL is the registry metadata endpoint for the CLI's package.
// The response's dist-tags object names the latest published version.
const npmRegistryURL = "https://registry.npmjs.org/" + npmPackage

// registryTimeout caps the registry round trip. The check is advisory
// (doctor degrades to "unknown" on failure), so it must never hold a
// command hostage to a slow network.
const registryTimeout = 3 * time.Second

// versionPattern extracts a bare x.y.z from CLI version banners such as
// "railway 3.5.2" or "railwayapp version 4.0.1 (build 2f1c)".
var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// InstalledVersion asks the installed CLI for its version and parses it.
func InstalledVersion(ctx context.Context, runner Runner, cliPath string) (*semver.Version, error) {
	output, err := runner.Capture(ctx, cliPath, "--version")
	if err != nil {
		return nil, fmt.Errorf("failed to run %s --version: %w", CLIName, err)
	}
	return parseVersion(output)
}

// parseVersion pulls the first semantic version out of a version banner.
func parseVersion(s string) (*semver.Version, error) {
	match := versionPattern.FindString(s)
	if match == "" {
		return nil, fmt.Errorf("no version number found in %q", s)
	}
	return semver.NewVersion(match)
}

// LatestVersion queries the npm registry for the CLI package's latest
// published version.
//
// Errors here mean "could not determine", nothing more — offline hosts
// and registry hiccups are expected, and callers report the version as
// unknown instead of failing their command.
func LatestVersion(ctx context.Context) (*semver.Version, error) {
	return latestVersion(ctx, npmRegistryURL)
}

// latestVersion is LatestVersion against an explicit URL, split out so
// tests can point it at a local server.
func latestVersion(ctx context.Context, url string) (*semver.Version, error) {
	ctx, cancel := context.WithTimeout(ctx, registryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("npm registry unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("npm registry returned %s for %s", resp.Status, npmPackage)
	}

	var meta struct {
		DistTags map[string]string `json:"dist-tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}

	latest := meta.DistTags["latest"]
	if latest == "" {
		return nil, fmt.Errorf("registry response for %s has no latest dist-tag", npmPackage)
	}
	return semver.NewVersion(latest)
}
