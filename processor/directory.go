package processor

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DirectoryProcessorName is the registry name of the directory processor.
const DirectoryProcessorName = "directory"

// directoryProcessor materialises ordered products by copying them from a
// local source directory into the per-user online access area
// (<root>/<user>/order_<id:02d>/). It is the default processor and doubles
// as the reference implementation of the ItemProcessor contract.
type directoryProcessor struct {
	sourceDir string
	rootDir   string
}

// NewDirectoryProcessor is the Constructor for the directory processor.
// Settings: source_dir (where products are read from), root_dir (the online
// data access root).
func NewDirectoryProcessor(settings map[string]string) (ItemProcessor, error) {
	p := &directoryProcessor{
		sourceDir: settings["source_dir"],
		rootDir:   settings["root_dir"],
	}
	if p.rootDir == "" {
		return nil, errors.New("directory processor requires a root_dir setting")
	}
	return p, nil
}

// ParseOption canonicalises by trimming surrounding whitespace. The literal
// match against configured choices happens in the caller.
func (p *directoryProcessor) ParseOption(name, value string) (string, error) {
	return strings.TrimSpace(value), nil
}

// ProcessItemOnlineAccess implements the ItemProcessor interface.
func (p *directoryProcessor) ProcessItemOnlineAccess(ctx context.Context, req Request) ([]string, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if req.Identifier == "" {
		return nil, "", errors.New("directory processor requires a product identifier")
	}

	targetDir := filepath.Join(p.rootDir, req.Username, orderDirName(req.OrderID))
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, "", errors.Wrap(err, "creating order directory")
	}

	fileName := path.Base(req.Identifier)
	target := filepath.Join(targetDir, fileName)

	if p.sourceDir != "" {
		source := filepath.Join(p.sourceDir, req.Identifier)
		if err := copyFile(source, target); err != nil {
			return nil, "", errors.Wrapf(err, "materialising %s", req.Identifier)
		}
	} else {
		// No source configured: produce a stub artefact. Used in tests and
		// demo deployments.
		if err := os.WriteFile(target, []byte(req.Identifier+"\n"), 0644); err != nil {
			return nil, "", errors.Wrapf(err, "producing %s", req.Identifier)
		}
	}

	urls := []string{path.Join(req.Username, orderDirName(req.OrderID), fileName)}
	if req.Packaging != "" {
		packaged, err := p.PackageFiles(ctx, req, urls)
		if err != nil {
			return nil, "", err
		}
		urls = packaged
	}
	return urls, fmt.Sprintf("produced %d file(s)", len(urls)), nil
}

// PackageFiles implements the ItemProcessor interface. Only zip packaging
// is supported.
func (p *directoryProcessor) PackageFiles(ctx context.Context, req Request, fileURLs []string) ([]string, error) {
	if req.Packaging != "zip" {
		return nil, errors.Errorf("unsupported packaging %q", req.Packaging)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	archiveURL := path.Join(req.Username, orderDirName(req.OrderID), req.ItemID+".zip")
	archivePath := filepath.Join(p.rootDir, filepath.FromSlash(archiveURL))

	out, err := os.Create(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, "creating package archive")
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, fileURL := range fileURLs {
		src := filepath.Join(p.rootDir, filepath.FromSlash(fileURL))
		f, err := os.Open(src)
		if err != nil {
			return nil, errors.Wrapf(err, "packaging %s", fileURL)
		}
		w, err := zw.Create(path.Base(fileURL))
		if err == nil {
			_, err = io.Copy(w, f)
		}
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "packaging %s", fileURL)
		}
		os.Remove(src)
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "closing package archive")
	}
	return []string{archiveURL}, nil
}

// CleanFiles implements the ItemProcessor interface.
func (p *directoryProcessor) CleanFiles(fileURLs []string) error {
	var firstErr error
	for _, fileURL := range fileURLs {
		err := os.Remove(filepath.Join(p.rootDir, filepath.FromSlash(fileURL)))
		if err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func orderDirName(orderID int64) string {
	return fmt.Sprintf("order_%02d", orderID)
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
