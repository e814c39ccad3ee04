package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mellowdesk/ambientd/internal/logging"
)

type catalogImpl struct {
	root       string
	extensions map[string]struct{}

	mu         sync.Mutex
	categories []Category
	files      map[string][]AssetDescriptor
}

// New 创建 Catalog，root 支持相对路径（相对可执行文件目录或工作目录解析）
func New(root string, extensions []string) Catalog {
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &catalogImpl{
		root:       resolveRoot(root),
		extensions: extSet,
		files:      make(map[string][]AssetDescriptor),
	}
}

// resolveRoot resolves a relative root against the executable directory
// first, then the working directory. Missing candidates fall through to the
// path as given so later reads degrade to empty results.
func resolveRoot(root string) string {
	if filepath.IsAbs(root) {
		return root
	}

	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), root))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, root))
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return root
}

func (c *catalogImpl) Discover(forceRefresh bool) []Category {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.categories != nil && !forceRefresh {
		return c.categories
	}
	if forceRefresh {
		c.files = make(map[string][]AssetDescriptor)
	}

	entries, err := os.ReadDir(c.root)
	if err != nil {
		logging.Warnf("Catalog: cannot read root %s: %v", c.root, err)
		c.categories = []Category{}
		return c.categories
	}

	categories := make([]Category, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(c.root, entry.Name())
		files := c.scanFiles(path)
		c.files[path] = files
		categories = append(categories, Category{
			Name:      entry.Name(),
			Path:      path,
			FileCount: len(files),
		})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })

	c.categories = categories
	logging.Infof("Catalog: discovered %d categories under %s", len(categories), c.root)
	return c.categories
}

func (c *catalogImpl) ListFiles(path string, forceRefresh bool) []AssetDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	if files, ok := c.files[path]; ok && !forceRefresh {
		return files
	}

	files := c.scanFiles(path)
	c.files[path] = files
	return files
}

func (c *catalogImpl) scanFiles(path string) []AssetDescriptor {
	entries, err := os.ReadDir(path)
	if err != nil {
		logging.Warnf("Catalog: cannot read category %s: %v", path, err)
		return []AssetDescriptor{}
	}

	files := make([]AssetDescriptor, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if _, ok := c.extensions[ext]; !ok {
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, AssetDescriptor{
			Name:      entry.Name(),
			Path:      filepath.Join(path, entry.Name()),
			Size:      size,
			Extension: ext,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}
