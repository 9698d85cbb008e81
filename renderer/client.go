package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/utils"
)

// client talks to the document rendering service that turns receipt and
// invoice data into PDFs. Auth is a shared secret header; the service sits on
// a private network and never sees end-user credentials.
type client struct {
	baseURL   string
	secret    string
	secretHdr string
	http      *http.Client
}

func newClient() (*client, error) {
	baseURL := strings.TrimSpace(os.Getenv("RENDERER_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("renderer base url is not configured")
	}
	secret := strings.TrimSpace(os.Getenv("RENDERER_SHARED_SECRET"))
	if secret == "" {
		return nil, errors.New("renderer shared secret is not configured")
	}
	secretHeader := strings.TrimSpace(os.Getenv("RENDERER_SECRET_HEADER"))
	if secretHeader == "" {
		secretHeader = "X-Renderer-Secret"
	}
	return &client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secret:    secret,
		secretHdr: secretHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// ReceiptDocument is the render payload for a payment receipt. All amounts
// arrive pre-rounded; the renderer does layout only.
type ReceiptDocument struct {
	Payment  *models.Payment  `json:"payment"`
	Invoice  *models.Invoice  `json:"invoice"`
	Business *models.Business `json:"business"`
	Client   *models.Client   `json:"client"`
}

// RenderReceipt produces the receipt PDF for a payment. A renderer failure is
// surfaced as an external-service error and leaves no local state behind.
func RenderReceipt(ctx context.Context, doc ReceiptDocument) ([]byte, error) {
	c, err := newClient()
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeExternalService, "document renderer unavailable", err)
	}
	return c.renderPDF(ctx, "/render/receipt", doc)
}

func (c *client) renderPDF(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set(c.secretHdr, c.secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeExternalService, "document renderer unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, utils.NewAppError(utils.ErrCodeExternalService,
			fmt.Sprintf("document renderer error %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeExternalService, "reading rendered document", err)
	}
	return pdf, nil
}
