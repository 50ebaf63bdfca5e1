package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/earthsight/oseo-server/dao"
	"github.com/earthsight/oseo-server/metadata/models"
	"github.com/earthsight/oseo-server/util"
)

// downloadFile serves a produced file over http online data access. The
// request path is either the server-relative URL reported by
// DescribeResultAccess or the long form addressing a file through its order
// item; a successful transfer is recorded against the file's download count.
func (h AppServer) downloadFile(ctx context.Context, w http.ResponseWriter, r *http.Request) *AppError {
	logger := LoggerFromContext(ctx)
	captured, _ := CaptureGroupsFromContext(ctx)

	file, herr := h.resolveDownload(captured)
	if herr != nil {
		return herr
	}
	if err := util.SanitizePath(file.URL); err != nil {
		return NewAppError(400, err, "invalid file path")
	}
	if !file.Available || (file.ExpiresOn.Valid && !file.ExpiresOn.Time.After(time.Now())) {
		return NewAppError(410, nil, "file "+file.URL+" is no longer available")
	}

	path := filepath.Join(h.Ordering.OnlineDataAccessHTTPRootDir, filepath.FromSlash(file.URL))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewAppError(410, err, "file "+file.URL+" is no longer on disk")
		}
		return NewAppError(500, err, "could not open file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return NewAppError(500, err, "could not stat file")
	}

	w.Header().Set("Content-Type", contentTypeByName(file.Name))
	http.ServeContent(w, r, file.Name, info.ModTime(), f)

	if err := h.RootDAO.RecordDownload(file.ID); err != nil {
		// The bytes are already out; log rather than fail the request.
		logger.Error("could not record download", zap.Int64("fileId", file.ID), zap.Error(err))
	}
	logger.Info("file download", zap.String("url", file.URL), zap.Int64("size", info.Size()))
	return NewAppError(200, nil, "served "+file.URL)
}

// resolveDownload finds the requested file record. The short route form
// carries the stored URL verbatim and is looked up directly. The long form
// names the order and item, so it is resolved against the stored order
// instead of reconstructing a URL.
func (h AppServer) resolveDownload(captured map[string]string) (models.OseoFile, *AppError) {
	user := captured["user"]
	orderID := captured["orderId"]
	name := captured["file"]
	if user == "" || orderID == "" || name == "" {
		return models.OseoFile{}, NewAppError(400, nil, "malformed download path")
	}

	itemID := captured["itemId"]
	if itemID == "" {
		url := user + "/order_" + orderID + "/" + name
		file, err := h.RootDAO.GetFileByURL(url)
		if err == dao.ErrNoRows {
			return models.OseoFile{}, NewAppError(404, nil, "no such file "+url)
		}
		if err != nil {
			return models.OseoFile{}, NewAppError(500, err, "could not look up file")
		}
		return file, nil
	}

	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return models.OseoFile{}, NewAppError(404, nil, "no such order "+orderID)
	}
	order, err := h.RootDAO.GetOrder(id)
	if err == dao.ErrNoRows {
		return models.OseoFile{}, NewAppError(404, nil, "no such order "+orderID)
	}
	if err != nil {
		return models.OseoFile{}, NewAppError(500, err, "could not look up order")
	}
	if order.Username != user {
		return models.OseoFile{}, NewAppError(404, nil, "no such file "+name)
	}
	for _, item := range order.Items {
		if item.ItemID != itemID {
			continue
		}
		for _, f := range item.Files {
			if f.Name == name {
				return f, nil
			}
		}
	}
	return models.OseoFile{}, NewAppError(404, nil, "no such file "+name)
}

func contentTypeByName(name string) string {
	switch {
	case strings.HasSuffix(name, ".tar.bz2"):
		return "application/x-tar"
	case strings.HasSuffix(name, ".bz2"):
		return "application/x-bzip2"
	case strings.HasSuffix(name, ".zip"):
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
