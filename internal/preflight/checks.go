package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"storyforge/internal/assets"
	"storyforge/internal/config"
	"storyforge/internal/deps"
)

const nodeCheckTimeout = 5 * time.Second

// CheckTTSNode verifies that the compute node answers and accepts the token.
// Nodes without a health endpoint pass as long as they respond.
func CheckTTSNode(ctx context.Context, baseURL, token string) Result {
	const name = "TTS node"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base_url"}
	}
	endpoint, err := url.JoinPath(base, "v1", "health")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid base_url (%v)", err)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, nodeCheckTimeout)
	defer cancel()

	client := &http.Client{Timeout: nodeCheckTimeout}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNodeError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return Result{Name: name, Passed: true, Detail: base + " (reachable)"}
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return Result{Name: name, Passed: true, Detail: base + " (reachable, no health endpoint)"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckVoiceCatalog loads the catalog and reports how many voices it lists.
func CheckVoiceCatalog(path string) Result {
	const name = "Voice catalog"

	catalog, err := assets.LoadVoices(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	count := len(catalog.IDs())
	if count == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (empty, voice ids pass through)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d voices)", path, count)}
}

// CheckSystemDeps evaluates the executables a render launches for the given
// config. The voice generator is optional when synthesis goes over HTTP.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for mixing and encoding",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
			Description: "Required for clip and asset durations",
		},
		{
			Name:        "Voice generator",
			Command:     cfg.VoicegenBinary(),
			Description: "Runs the command TTS engine",
			Optional:    cfg.TTS.Engine != config.EngineCommand,
		},
	}
	return deps.CheckBinaries(requirements)
}

func summarizeNodeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (node unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (node unreachable)"
	}
	return err.Error()
}
