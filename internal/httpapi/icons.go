package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"titrack/internal/store"
)

// IconCache is the server-side icon proxy's on-disk cache, grounded on
// original_source/src/titrack/api/routes/icons.py's CDN-proxy-with-cache
// design, adapted from an in-memory map to files under dir so the cache
// survives process restarts.
type IconCache struct {
	dir    string
	client *http.Client
}

// NewIconCache creates a cache rooted at dir, creating it if necessary.
func NewIconCache(dir string) (*IconCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &IconCache{dir: dir, client: &http.Client{Timeout: 10 * time.Second}}, nil
}

func (c *IconCache) cachePath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+extensionOf(url))
}

// Fetch returns the icon bytes and content type for url, serving from the
// on-disk cache when present and falling through to the CDN otherwise.
func (c *IconCache) Fetch(url string) ([]byte, string, error) {
	path := c.cachePath(url)
	if data, err := os.ReadFile(path); err == nil {
		return data, contentTypeOf(url), nil
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	// The upstream CDN rejects requests without a browser-like User-Agent
	// and Referer, per the original icon proxy's CDN_HEADERS.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://tlidb.com/")
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", &http.ProtocolError{ErrorString: "icon CDN returned " + resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	_ = os.WriteFile(path, data, 0o644)
	return data, contentTypeOf(url), nil
}

func extensionOf(url string) string {
	if i := strings.LastIndex(url, "."); i != -1 && i > strings.LastIndex(url, "/") {
		return url[i:]
	}
	return ""
}

func contentTypeOf(url string) string {
	switch {
	case strings.HasSuffix(url, ".png"):
		return "image/png"
	case strings.HasSuffix(url, ".jpg"), strings.HasSuffix(url, ".jpeg"):
		return "image/jpeg"
	default:
		return "image/webp"
	}
}

// IconsHandler serves the "icons" resource of spec.md §6.
type IconsHandler struct {
	store *store.Store
	cache *IconCache
}

func NewIconsHandler(st *store.Store, cache *IconCache) *IconsHandler {
	return &IconsHandler{store: st, cache: cache}
}

// Get handles GET /api/icons/:typeId.
func (h *IconsHandler) Get(c *gin.Context) {
	typeID, ok := parseTypeIDParam(c)
	if !ok {
		return
	}

	item, found, err := h.store.GetItem(typeID)
	if err != nil || !found || item.IconRef == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "icon_not_found"})
		return
	}

	data, contentType, err := h.cache.Fetch(item.IconRef)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "icon_unavailable"})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, data)
}
