package clicksign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/domain/signing"
	"github.com/solarium-dev/solarium/pkg/configuration"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

// Adapter talks to the Clicksign REST API. Clicksign notifies every
// signer at once, so SupportsSequential is false; a request asking for
// sequential routing gets all signers notified simultaneously.
type Adapter struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func New(opts configuration.ClicksignOptions) *Adapter {
	return &Adapter{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		accessToken: opts.AccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) Name() signaturerequest.Provider {
	return signaturerequest.ProviderClicksign
}

func (a *Adapter) SupportsSequential() bool {
	return false
}

type createDocumentRequest struct {
	Document struct {
		Key      string `json:"key,omitempty"`
		Path     string `json:"path"`
		Deadline string `json:"deadline_at,omitempty"`
		Remind   int    `json:"remind_interval,omitempty"`
	} `json:"document"`
	Signers []struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone_number,omitempty"`
		Auths string `json:"auths"`
	} `json:"signers"`
}

type createDocumentResponse struct {
	Document struct {
		Key    string `json:"key"`
		Status string `json:"status"`
	} `json:"document"`
}

func (a *Adapter) Create(ctx context.Context, req signaturerequest.SignatureRequest) (string, error) {
	var body createDocumentRequest
	body.Document.Path = "/" + req.DocumentHash().String() + ".pdf"
	if req.ExpiresAt() != nil {
		body.Document.Deadline = req.ExpiresAt().Format(time.RFC3339)
	}
	if req.RemindEvery() > 0 {
		body.Document.Remind = int(req.RemindEvery().Hours() / 24)
	}
	for _, s := range req.Signers() {
		auths := "email"
		if s.Auth == signaturerequest.AuthSMS {
			auths = "sms"
		}
		body.Signers = append(body.Signers, struct {
			Email string `json:"email"`
			Name  string `json:"name"`
			Phone string `json:"phone_number,omitempty"`
			Auths string `json:"auths"`
		}{Email: s.Email, Name: s.Name, Phone: s.Phone, Auths: auths})
	}

	var out createDocumentResponse
	if err := a.do(ctx, http.MethodPost, "/documents", body, &out); err != nil {
		return "", err
	}
	if out.Document.Key == "" {
		return "", serrors.NewProviderError("clicksign", "no document key in response", nil)
	}
	return out.Document.Key, nil
}

type documentStatusResponse struct {
	Document struct {
		Key     string `json:"key"`
		Status  string `json:"status"`
		Signers []struct {
			Email  string `json:"email"`
			Status string `json:"status"`
		} `json:"signers"`
	} `json:"document"`
}

var requestStatusMap = map[string]signaturerequest.Status{
	"running":  signaturerequest.StatusSent,
	"closed":   signaturerequest.StatusCompleted,
	"canceled": signaturerequest.StatusCancelled,
}

var signerStatusMap = map[string]signaturerequest.SignerStatus{
	"pending": signaturerequest.SignerSent,
	"viewed":  signaturerequest.SignerViewed,
	"signed":  signaturerequest.SignerSigned,
	"refused": signaturerequest.SignerDeclined,
}

func (a *Adapter) GetStatus(ctx context.Context, providerRequestID string) (*signing.StatusReport, error) {
	var out documentStatusResponse
	if err := a.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(providerRequestID), nil, &out); err != nil {
		return nil, err
	}

	native := strings.ToLower(out.Document.Status)
	report := &signing.StatusReport{
		RequestStatus: signaturerequest.StatusSent,
		RawStatus:     native,
	}
	if mapped, ok := requestStatusMap[native]; ok {
		report.RequestStatus = mapped
	}
	declined := false
	for _, s := range out.Document.Signers {
		state := signing.SignerState{Email: s.Email, Status: signaturerequest.SignerSent}
		if mapped, ok := signerStatusMap[strings.ToLower(s.Status)]; ok {
			state.Status = mapped
		}
		if state.Status == signaturerequest.SignerDeclined {
			declined = true
		}
		report.Signers = append(report.Signers, state)
	}
	// Clicksign reports a refused document as closed; a refused signer
	// wins over the document status.
	if declined {
		report.RequestStatus = signaturerequest.StatusDeclined
	}
	return report, nil
}

func (a *Adapter) SendReminder(ctx context.Context, providerRequestID, signerEmail string) error {
	body := map[string]string{
		"document_key": providerRequestID,
		"email":        signerEmail,
	}
	return a.do(ctx, http.MethodPost, "/notifications", body, nil)
}

func (a *Adapter) Cancel(ctx context.Context, providerRequestID string) error {
	return a.do(ctx, http.MethodPatch, "/documents/"+url.PathEscape(providerRequestID)+"/cancel", nil, nil)
}

type signerURLResponse struct {
	URL string `json:"url"`
}

func (a *Adapter) GetEmbeddedSigningURL(ctx context.Context, providerRequestID, signerEmail string) (string, error) {
	var out signerURLResponse
	path := "/documents/" + url.PathEscape(providerRequestID) + "/signers/" + url.PathEscape(signerEmail) + "/url"
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (a *Adapter) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := a.baseURL + path
	if strings.Contains(endpoint, "?") {
		endpoint += "&access_token=" + url.QueryEscape(a.accessToken)
	} else {
		endpoint += "?access_token=" + url.QueryEscape(a.accessToken)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return serrors.NewProviderError("clicksign", "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return signing.ErrUnknownEnvelope
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return serrors.NewProviderError("clicksign", fmt.Sprintf("%s (%s)", resp.Status, strings.TrimSpace(string(b))), nil)
	}
	if out == nil {
		return nil
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
