package textmesh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/image/font/gofont/goregular"
)

// maxFontSize limits the size of fonts fetched over the network.
const maxFontSize = 32 << 20

// GoRegularTTF returns a copy of the embedded Go Regular TrueType font.
func GoRegularTTF() []byte {
	return append([]byte{}, goregular.TTF...) // copy contents.
}

// Open loads a TrueType font from location, which may be an http(s) URL or a file path.
// An empty location loads the embedded Go Regular font. The returned Font uses [DefaultExtrudeConfig].
func Open(ctx context.Context, location string) (*Font, error) {
	var (
		ttf []byte
		err error
	)
	switch {
	case location == "":
		ttf = goregular.TTF
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		ttf, err = fetch(ctx, location)
	default:
		ttf, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, err
	}
	f := new(Font)
	err = f.LoadTTFBytes(ttf)
	if err != nil {
		return nil, fmt.Errorf("parsing font %q: %w", location, err)
	}
	return f, nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch font: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad response status fetching font: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFontSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read font body: %w", err)
	}
	if len(body) > maxFontSize {
		return nil, fmt.Errorf("font at %s exceeds %d bytes", url, maxFontSize)
	}
	return body, nil
}
