package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/rxtech-lab/nft-marketplace/internal/constants"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"go.uber.org/zap"
)

// PinResult is Pinata's pin response
type PinResult struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// ContentStore pins content to IPFS and resolves it back through HTTP gateways.
// Pinning is idempotent by content hash.
type ContentStore interface {
	PinFile(ctx context.Context, name, fileName, contentType string, data []byte) (*PinResult, error)
	PinJSON(ctx context.Context, name string, content interface{}) (*PinResult, error)
	// Fetch resolves a hash or ipfs:// URI trying each gateway in order
	Fetch(ctx context.Context, uri string) ([]byte, error)
	TestAuthentication(ctx context.Context) error
}

type PinataOptions struct {
	APIURL     string
	APIKey     string
	SecretKey  string
	Gateways   []string
	HTTPClient *http.Client
}

type pinataContentStore struct {
	apiURL     string
	apiKey     string
	secretKey  string
	gateways   []string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPinataContentStore(opts PinataOptions, logger *zap.Logger) ContentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.APIURL == "" {
		opts.APIURL = constants.PinataAPIURL
	}
	if len(opts.Gateways) == 0 {
		opts.Gateways = constants.IPFSGateways
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &pinataContentStore{
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		apiKey:     opts.APIKey,
		secretKey:  opts.SecretKey,
		gateways:   opts.Gateways,
		httpClient: opts.HTTPClient,
		logger:     logger.Named("ipfs"),
	}
}

type pinataMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues"`
}

func (s *pinataContentStore) PinFile(ctx context.Context, name, fileName, contentType string, data []byte) (*PinResult, error) {
	if err := s.requireCredentials(); err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(fileName)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, &ContentStoreError{Op: "pin file", Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &ContentStoreError{Op: "pin file", Err: err}
	}

	metadata, err := json.Marshal(pinataMetadata{
		Name:      pinName(name, fileName),
		KeyValues: map[string]string{"type": "nft-image"},
	})
	if err != nil {
		return nil, &ContentStoreError{Op: "pin file", Err: err}
	}
	if err := writer.WriteField("pinataMetadata", string(metadata)); err != nil {
		return nil, &ContentStoreError{Op: "pin file", Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &ContentStoreError{Op: "pin file", Err: err}
	}

	result, err := s.pin(ctx, "/pinning/pinFileToIPFS", writer.FormDataContentType(), body)
	if err != nil {
		return nil, &ContentStoreError{Op: "pin file", Err: err}
	}
	s.logger.Info("pinned file", zap.String("hash", result.IpfsHash), zap.Int64("size", result.PinSize))
	return result, nil
}

func (s *pinataContentStore) PinJSON(ctx context.Context, name string, content interface{}) (*PinResult, error) {
	if err := s.requireCredentials(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"pinataContent": content,
		"pinataMetadata": pinataMetadata{
			Name:      pinName(name, "nft") + "-metadata",
			KeyValues: map[string]string{"type": "nft-metadata"},
		},
	})
	if err != nil {
		return nil, &ContentStoreError{Op: "pin json", Err: err}
	}

	result, err := s.pin(ctx, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, &ContentStoreError{Op: "pin json", Err: err}
	}
	s.logger.Info("pinned metadata", zap.String("hash", result.IpfsHash))
	return result, nil
}

func (s *pinataContentStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	var errs []error
	for _, gateway := range s.gateways {
		data, err := s.fetchFrom(ctx, utils.GatewayURL(gateway, uri))
		if err == nil {
			return data, nil
		}
		s.logger.Debug("gateway fetch failed", zap.String("gateway", gateway), zap.Error(err))
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &ContentStoreError{Op: "fetch", Err: errors.Join(errs...)}
}

func (s *pinataContentStore) TestAuthentication(ctx context.Context) error {
	if err := s.requireCredentials(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"/data/testAuthentication", nil)
	if err != nil {
		return err
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &ContentStoreError{Op: "test authentication", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ContentStoreError{Op: "test authentication", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

func (s *pinataContentStore) pin(ctx context.Context, path, contentType string, body io.Reader) (*PinResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("pinata returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result PinResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pin response: %w", err)
	}
	if result.IpfsHash == "" {
		return nil, errors.New("pin response has no IpfsHash")
	}
	return &result, nil
}

func (s *pinataContentStore) fetchFrom(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, constants.MaxImageSize))
}

func (s *pinataContentStore) authorize(req *http.Request) {
	req.Header.Set("pinata_api_key", s.apiKey)
	req.Header.Set("pinata_secret_api_key", s.secretKey)
}

func (s *pinataContentStore) requireCredentials() error {
	if s.apiKey == "" || s.secretKey == "" {
		return ErrContentStoreUnavailable
	}
	return nil
}

func pinName(name, fallback string) string {
	if n := slug.Make(name); n != "" {
		return n
	}
	return slug.Make(fallback)
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
