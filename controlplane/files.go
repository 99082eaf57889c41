package controlplane

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/gofiber/fiber/v2"

	"mocktun/config"
)

type fileEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Name string `json:"name"`
}

type fileListResponse struct {
	CurrentPath string      `json:"current_path"`
	Entries     []fileEntry `json:"entries"`
}

// pathArg resolves the required "path" query argument through
// config.NormalizePath, the Go analogue of pymock's FileCommonHandler
// combining get_query_argument('path') with normalize_path.
func pathArg(c *fiber.Ctx) (string, error) {
	raw, err := queryRequired(c, "path")
	if err != nil {
		return "", err
	}
	return config.NormalizePath(raw), nil
}

// handleFileList implements GET /file/list, matching pymock's
// FileListHandler: an entry for ".." followed by every directory entry,
// directories sorted before files and then by name.
func (s *Server) handleFileList(c *fiber.Ctx) error {
	path, err := pathArg(c)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return newAPIError(fiber.StatusMethodNotAllowed, "not a directory")
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return newAPIError(fiber.StatusInternalServerError, err.Error())
	}

	list := []fileEntry{{Type: "dir", Path: "..", Name: ".."}}
	for _, e := range entries {
		t := "file"
		if e.IsDir() {
			t = "dir"
		}
		list = append(list, fileEntry{Type: t, Path: filepath.Join(path, e.Name()), Name: e.Name()})
	}

	sort.SliceStable(list[1:], func(i, j int) bool {
		a, b := list[1:][i], list[1:][j]
		if a.Type != b.Type {
			return a.Type == "dir"
		}
		return a.Name < b.Name
	})

	return c.JSON(fileListResponse{CurrentPath: path, Entries: list})
}

// handleFileGet implements GET /file, returning the raw file contents as
// text/plain, matching pymock's FileHandler.get.
func (s *Server) handleFileGet(c *fiber.Ctx) error {
	path, err := pathArg(c)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return newAPIError(fiber.StatusMethodNotAllowed, "not a file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return newAPIError(fiber.StatusInternalServerError, err.Error())
	}
	c.Set("Content-Type", "text/plain")
	c.Set("Cache-Control", "no-cache")
	return c.Send(data)
}

// handleFilePut implements PUT /file, overwriting the file with the
// request body, matching pymock's FileHandler.put.
func (s *Server) handleFilePut(c *fiber.Ctx) error {
	path, err := pathArg(c)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return newAPIError(fiber.StatusMethodNotAllowed, "not a file")
	}
	return os.WriteFile(path, c.Body(), 0644)
}

// handleFileCreate implements POST /file, creating an empty file or folder
// inside the directory named by "path", matching pymock's FileHandler.post.
func (s *Server) handleFileCreate(c *fiber.Ctx) error {
	path, err := pathArg(c)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return newAPIError(fiber.StatusBadRequest, "not a directory")
	}

	name, err := queryRequired(c, "name")
	if err != nil {
		return err
	}
	kind, err := queryRequired(c, "type")
	if err != nil {
		return err
	}

	target := filepath.Join(path, name)
	switch kind {
	case "folder":
		return os.Mkdir(target, 0755)
	case "file":
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		return f.Close()
	default:
		return newAPIError(fiber.StatusBadRequest, "unknown type "+kind)
	}
}
