// Package appconfig reads and validates the poster settings from env and .env files
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/config"
)

const (
	defaultAPIBase     = "https://api.vk.com"
	defaultAPIVersion  = "5.131"
	defaultComicBase   = "https://xkcd.com"
	defaultTimeout     = 20 * time.Second
	minTimeout         = time.Second
	maxTimeout         = 2 * time.Minute
	defaultDownloadDir = "."
	defaultLogLevel    = "info"
	defaultMaxSideSum  = 14000
)

var (
	ErrMissingToken   = errors.New("VK_ACCESS_TOKEN is not set")
	ErrMissingGroupID = errors.New("VK_GROUP_ID is not set")
	ErrInvalidGroupID = errors.New("VK_GROUP_ID must be a positive integer")
	ErrInvalidSetting = errors.New("invalid setting")
)

type Settings struct {
	AccessToken   string
	GroupID       int64
	APIBase       string
	APIVersion    string
	ComicBaseURL  string
	HTTPTimeout   time.Duration
	DownloadDir   string
	LogLevel      string
	MaxImageSides int
}

// New - creates config reading the process env and the optional .env file
func New(envFiles ...string) (*config.Config, error) {
	cfg := config.New()
	cfg.EnableEnv("")
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := cfg.LoadEnvFiles(f); err != nil {
			return nil, fmt.Errorf("failed to load env file %q: %w", f, err)
		}
	}
	return cfg, nil
}

func setDefaults(cfg *config.Config) {
	cfg.SetDefault("VK_API_BASE", defaultAPIBase)
	cfg.SetDefault("VK_API_VERSION", defaultAPIVersion)
	cfg.SetDefault("COMIC_BASE_URL", defaultComicBase)
	cfg.SetDefault("HTTP_TIMEOUT", defaultTimeout)
	cfg.SetDefault("DOWNLOAD_DIR", defaultDownloadDir)
	cfg.SetDefault("LOG_LEVEL", defaultLogLevel)
	cfg.SetDefault("IMAGE_MAX_SIDE_SUM", defaultMaxSideSum)
}

// Load validates settings; the token itself never appears in returned errors
func Load(cfg *config.Config) (*Settings, error) {
	setDefaults(cfg)

	s := &Settings{
		AccessToken:   strings.TrimSpace(cfg.GetString("VK_ACCESS_TOKEN")),
		APIBase:       strings.TrimRight(strings.TrimSpace(cfg.GetString("VK_API_BASE")), "/"),
		APIVersion:    strings.TrimSpace(cfg.GetString("VK_API_VERSION")),
		ComicBaseURL:  strings.TrimRight(strings.TrimSpace(cfg.GetString("COMIC_BASE_URL")), "/"),
		HTTPTimeout:   cfg.GetDuration("HTTP_TIMEOUT"),
		DownloadDir:   strings.TrimSpace(cfg.GetString("DOWNLOAD_DIR")),
		LogLevel:      strings.ToLower(strings.TrimSpace(cfg.GetString("LOG_LEVEL"))),
		MaxImageSides: cfg.GetInt("IMAGE_MAX_SIDE_SUM"),
	}

	if s.AccessToken == "" {
		return nil, ErrMissingToken
	}

	rawGroup := strings.TrimSpace(cfg.GetString("VK_GROUP_ID"))
	if rawGroup == "" {
		return nil, ErrMissingGroupID
	}
	groupID, err := strconv.ParseInt(strings.TrimPrefix(rawGroup, "-"), 10, 64)
	if err != nil || groupID <= 0 {
		return nil, ErrInvalidGroupID
	}
	s.GroupID = groupID

	for key, raw := range map[string]string{"VK_API_BASE": s.APIBase, "COMIC_BASE_URL": s.ComicBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: %s=%q is not an absolute URL", ErrInvalidSetting, key, raw)
		}
	}

	// unparsable durations come back as zero
	if s.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("%w: HTTP_TIMEOUT=%q must be a positive duration", ErrInvalidSetting, cfg.GetString("HTTP_TIMEOUT"))
	}
	s.HTTPTimeout = clamp(s.HTTPTimeout, minTimeout, maxTimeout)

	if s.MaxImageSides <= 0 {
		return nil, fmt.Errorf("%w: IMAGE_MAX_SIDE_SUM=%q must be a positive integer", ErrInvalidSetting, cfg.GetString("IMAGE_MAX_SIDE_SUM"))
	}

	return s, nil
}

func clamp(d, lo, hi time.Duration) time.Duration {
	switch {
	case d < lo:
		return lo
	case d > hi:
		return hi
	default:
		return d
	}
}
