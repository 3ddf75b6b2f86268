// Package build stages Docker build contexts and drives the image build
// for dockhand projects.
//
// A build never runs against the project directory itself. Instead, Stage
// copies exactly what the image recipe needs (the dependency manifest and
// the source tree) into a throwaway context directory, writes the generated
// Dockerfile and .dockerignore next to them, and hands that directory to
// the builder. Whatever else lives in the project — env files, logs, VCS
// metadata — physically cannot end up in the image.
package build

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/dockhand/internal/manifest"
	"github.com/shinji-kodama/dockhand/internal/model"
	"github.com/shinji-kodama/dockhand/internal/recipe"
)

// Stage assembles a temporary build context for the project.
//
// It verifies the manifest's inputs exist before creating anything: a
// missing dependency manifest or source directory fails here with
// ExitManifestError, so no image build process is ever started for a
// broken project.
//
// The returned cleanup removes the context directory; callers should defer
// it immediately. On error the partial context is already removed and no
// cleanup is returned.
func Stage(projectDir string, m *manifest.Manifest) (string, func(), error) {
	reqPath := filepath.Join(projectDir, m.Requirements)
	if info, err := os.Stat(reqPath); err != nil || info.IsDir() {
		return "", nil, model.NewCLIError(
			model.ExitManifestError,
			fmt.Sprintf("dependency manifest %q not found in %s — nothing to install", m.Requirements, projectDir),
		)
	}

	srcPath := filepath.Join(projectDir, m.SourceDir)
	if info, err := os.Stat(srcPath); err != nil || !info.IsDir() {
		return "", nil, model.NewCLIError(
			model.ExitManifestError,
			fmt.Sprintf("source directory %q not found in %s", m.SourceDir, projectDir),
		)
	}

	ctxDir, err := os.MkdirTemp("", "dockhand-ctx-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create build context directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(ctxDir) }

	// The dependency manifest keeps its relative path inside the context so
	// the recipe's COPY instruction resolves (it may be nested, e.g.
	// "deploy/requirements.txt").
	if err := copyFile(reqPath, filepath.Join(ctxDir, m.Requirements)); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to stage %s: %w", m.Requirements, err)
	}

	if err := copyTree(srcPath, filepath.Join(ctxDir, m.SourceDir), m.EnvFile, projectDir); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to stage %s: %w", m.SourceDir, err)
	}

	if err := os.WriteFile(filepath.Join(ctxDir, "Dockerfile"), recipe.Generate(m), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write Dockerfile: %w", err)
	}

	if err := os.WriteFile(filepath.Join(ctxDir, ".dockerignore"), recipe.Ignore(m), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write .dockerignore: %w", err)
	}

	return ctxDir, cleanup, nil
}

// copyTree recursively copies a directory, excluding everything the image
// must never contain: env files (the configured one and anything named
// ".env" or ".env.*"), Python bytecode caches, and symlinks (which could
// point outside the project).
//
// envFile is the manifest's env file path relative to projectDir; if it
// happens to live inside the source tree it is skipped here as well, so
// the staging exclusion holds regardless of where the user put it.
func copyTree(srcDir, dstDir, envFile, projectDir string) error {
	configuredEnv := filepath.Clean(filepath.Join(projectDir, envFile))

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		base := info.Name()
		if info.IsDir() {
			if base == "__pycache__" || base == ".git" {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dstDir, rel), 0o755)
		}

		// Symlinks are not followed: a link out of the project would pull
		// unvetted files into the context.
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		if base == ".env" || strings.HasPrefix(base, ".env.") {
			return nil
		}
		if filepath.Clean(path) == configuredEnv {
			return nil
		}
		if strings.HasSuffix(base, ".pyc") {
			return nil
		}

		return copyFile(path, filepath.Join(dstDir, rel))
	})
}

// copyFile copies a single file, creating parent directories as needed and
// preserving the source's permission bits.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	// io.Copy streams in chunks, so large files do not load fully into memory.
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
