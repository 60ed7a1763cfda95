package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const fetchTimeout = 10 * time.Second

// Fetch читает резервный источник: http(s) URL или локальный файл.
// Отсутствующий файл и пустой источник не ошибка.
func Fetch(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, nil
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchRemote(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req := resty.New().SetTimeout(fetchTimeout).R().SetContext(ctx)
	req.Method = http.MethodGet
	req.URL = url
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return resp.Body(), nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("catalog source %s status: %d", url, resp.StatusCode())
	}
}
