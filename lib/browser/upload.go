package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
)

// UploadFile posts file bytes as a multipart upload to target under the
// given field name. The bytes are staged through a temp file which is
// removed before returning, whether or not the upload succeeded.
func (s *Session) UploadFile(ctx context.Context, target, field, filename string, data []byte, extra map[string]string) (*resty.Response, error) {
	tmpDir, err := os.MkdirTemp("", "upload-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, filepath.Base(filename))
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return nil, err
	}

	res, err := s.Http.R().
		SetContext(ctx).
		SetFile(field, tmpPath).
		SetFormDataFromValues(toValues(extra)).
		Post(target)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() >= 400 {
		return res, fmt.Errorf("upload %s: status %d", target, res.StatusCode())
	}
	return res, nil
}

func toValues(extra map[string]string) url.Values {
	values := make(url.Values, len(extra))
	for k, v := range extra {
		values.Set(k, v)
	}
	return values
}
