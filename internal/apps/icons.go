package apps

import (
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chess10kp/bluepanel/internal/config"
)

// IconResolver maps an Icon= identifier to a URL served by the icon mount.
// Lookups hit the filesystem every time.
type IconResolver struct {
	root        string
	theme       string
	sizes       []int
	exts        []string
	placeholder string
	urlPrefix   string
}

func NewIconResolver(cfg *config.Config) *IconResolver {
	return &IconResolver{
		root:        cfg.Icons.Root,
		theme:       cfg.Icons.Theme,
		sizes:       append([]int(nil), cfg.Icons.Sizes...),
		exts:        append([]string(nil), cfg.Icons.Extensions...),
		placeholder: cfg.Icons.Placeholder,
		urlPrefix:   cfg.Server.BaseURL() + strings.TrimSuffix(cfg.Icons.MountPrefix, "/"),
	}
}

// Resolve returns "" for an empty identifier, the first existing
// size/extension match as a URL, or the placeholder.
func (r *IconResolver) Resolve(icon string) string {
	if icon == "" {
		return ""
	}
	if strings.ContainsAny(icon, `/\`) || strings.Contains(icon, "..") {
		return r.placeholder
	}

	for _, size := range r.sizes {
		for _, ext := range r.exts {
			rel := path.Join(r.theme, "apps", strconv.Itoa(size), icon+ext)
			info, err := os.Stat(filepath.Join(r.root, filepath.FromSlash(rel)))
			if err == nil && info.Mode().IsRegular() {
				return r.urlPrefix + "/" + rel
			}
		}
	}

	return r.placeholder
}
