package figures

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// chart is the subset of the go-echarts chart API the writer needs. Both
// *charts.Line and *charts.Bar satisfy it.
type chart interface {
	Render(w io.Writer) error
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable probes once for a usable headless Chrome. The probe
// result is cached for the process lifetime.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func renderChartHTML(ch chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := ch.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		// Quality 100 selects PNG encoding; anything lower silently
		// switches the bytes to JPEG.
		chromedp.FullScreenshot(&screenshot, 100),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
