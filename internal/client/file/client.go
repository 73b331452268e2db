package file

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

type FileClient struct {
	client http.Client
}

func NewFileClient() *FileClient {
	return &FileClient{
		client: http.Client{
			Timeout: time.Second * 30,
		},
	}
}

// DownloadFile fetches URL and writes it to fileName. The write goes through
// a temporary file and a rename so readers never observe a partial image.
func (fc *FileClient) DownloadFile(ctx context.Context, URL, fileName string) error {

	req, err := http.NewRequestWithContext(ctx, "GET", URL, nil)
	if err != nil {
		return err
	}

	response, err := fc.client.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return errors.Errorf("client failed with status code %d", response.StatusCode)
	}

	tmpName := fileName + ".tmp"
	f, err := os.Create(tmpName)
	if err != nil {
		return err
	}

	_, err = io.Copy(f, response.Body)
	if err != nil {
		f.Close()
		os.Remove(tmpName)
		return err
	}

	if err = f.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, fileName)
}
