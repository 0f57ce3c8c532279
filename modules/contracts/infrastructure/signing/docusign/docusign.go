package docusign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/domain/signing"
	"github.com/solarium-dev/solarium/pkg/configuration"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

// Adapter talks to the DocuSign eSignature REST API. DocuSign routes
// signers sequentially by routing order, so SupportsSequential is true
// and the orchestrator delegates ordering to the provider.
type Adapter struct {
	baseURL     string
	accountID   string
	accessToken string
	httpClient  *http.Client
}

func New(opts configuration.DocuSignOptions) *Adapter {
	return &Adapter{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		accountID:   opts.AccountID,
		accessToken: opts.AccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) Name() signaturerequest.Provider {
	return signaturerequest.ProviderDocuSign
}

func (a *Adapter) SupportsSequential() bool {
	return true
}

type envelopeTab struct {
	PageNumber string `json:"pageNumber"`
	XPosition  string `json:"xPosition"`
	YPosition  string `json:"yPosition"`
	Optional   string `json:"optional,omitempty"`
}

type envelopeSigner struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
	Tabs         struct {
		SignHere   []envelopeTab `json:"signHereTabs,omitempty"`
		Initial    []envelopeTab `json:"initialHereTabs,omitempty"`
		DateSigned []envelopeTab `json:"dateSignedTabs,omitempty"`
	} `json:"tabs"`
	IdentityVerification *struct {
		WorkflowID string `json:"workflowId"`
	} `json:"identityVerification,omitempty"`
	SMSAuthentication *struct {
		SenderProvidedNumbers []string `json:"senderProvidedNumbers"`
	} `json:"smsAuthentication,omitempty"`
}

type createEnvelopeRequest struct {
	EmailSubject string `json:"emailSubject"`
	EmailBlurb   string `json:"emailBlurb,omitempty"`
	Status       string `json:"status"`
	Recipients   struct {
		Signers []envelopeSigner `json:"signers"`
	} `json:"recipients"`
}

type createEnvelopeResponse struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

func (a *Adapter) Create(ctx context.Context, req signaturerequest.SignatureRequest) (string, error) {
	body := createEnvelopeRequest{
		EmailSubject: req.Subject(),
		EmailBlurb:   req.Message(),
		Status:       "sent",
	}
	if body.EmailSubject == "" {
		body.EmailSubject = "Signature requested"
	}
	for i, s := range req.Signers() {
		signer := envelopeSigner{
			Email:       s.Email,
			Name:        s.Name,
			RecipientID: strconv.Itoa(i + 1),
		}
		if req.Sequential() {
			signer.RoutingOrder = strconv.Itoa(s.OrderIndex + 1)
		} else {
			signer.RoutingOrder = "1"
		}
		for _, f := range s.Fields {
			tab := envelopeTab{
				PageNumber: strconv.Itoa(f.Page),
				XPosition:  strconv.Itoa(int(f.X * 100)),
				YPosition:  strconv.Itoa(int(f.Y * 100)),
			}
			if !f.Required {
				tab.Optional = "true"
			}
			switch f.Kind {
			case signaturerequest.FieldSignature:
				signer.Tabs.SignHere = append(signer.Tabs.SignHere, tab)
			case signaturerequest.FieldInitials:
				signer.Tabs.Initial = append(signer.Tabs.Initial, tab)
			case signaturerequest.FieldDateSigned:
				signer.Tabs.DateSigned = append(signer.Tabs.DateSigned, tab)
			}
		}
		if s.Auth == signaturerequest.AuthSMS && s.Phone != "" {
			signer.SMSAuthentication = &struct {
				SenderProvidedNumbers []string `json:"senderProvidedNumbers"`
			}{SenderProvidedNumbers: []string{s.Phone}}
		}
		body.Recipients.Signers = append(body.Recipients.Signers, signer)
	}

	var out createEnvelopeResponse
	if err := a.do(ctx, http.MethodPost, "/accounts/"+a.accountID+"/envelopes", body, &out); err != nil {
		return "", err
	}
	if out.EnvelopeID == "" {
		return "", serrors.NewProviderError("docusign", "no envelope id in response", nil)
	}
	return out.EnvelopeID, nil
}

type envelopeStatusResponse struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

type envelopeRecipientsResponse struct {
	Signers []struct {
		Email  string `json:"email"`
		Status string `json:"status"`
	} `json:"signers"`
}

// requestStatusMap translates DocuSign envelope statuses to local
// ones. Unlisted native statuses collapse to sent pending a later
// delivery that resolves them.
var requestStatusMap = map[string]signaturerequest.Status{
	"sent":      signaturerequest.StatusSent,
	"delivered": signaturerequest.StatusSent,
	"completed": signaturerequest.StatusCompleted,
	"declined":  signaturerequest.StatusDeclined,
	"voided":    signaturerequest.StatusCancelled,
}

var signerStatusMap = map[string]signaturerequest.SignerStatus{
	"created":   signaturerequest.SignerUnsent,
	"sent":      signaturerequest.SignerSent,
	"delivered": signaturerequest.SignerViewed,
	"completed": signaturerequest.SignerSigned,
	"signed":    signaturerequest.SignerSigned,
	"declined":  signaturerequest.SignerDeclined,
}

func (a *Adapter) GetStatus(ctx context.Context, providerRequestID string) (*signing.StatusReport, error) {
	var envelope envelopeStatusResponse
	if err := a.do(ctx, http.MethodGet, "/accounts/"+a.accountID+"/envelopes/"+providerRequestID, nil, &envelope); err != nil {
		return nil, err
	}
	var recipients envelopeRecipientsResponse
	if err := a.do(ctx, http.MethodGet, "/accounts/"+a.accountID+"/envelopes/"+providerRequestID+"/recipients", nil, &recipients); err != nil {
		return nil, err
	}

	native := strings.ToLower(envelope.Status)
	report := &signing.StatusReport{
		RequestStatus: signaturerequest.StatusSent,
		RawStatus:     native,
	}
	if mapped, ok := requestStatusMap[native]; ok {
		report.RequestStatus = mapped
	}
	for _, s := range recipients.Signers {
		state := signing.SignerState{Email: s.Email, Status: signaturerequest.SignerSent}
		if mapped, ok := signerStatusMap[strings.ToLower(s.Status)]; ok {
			state.Status = mapped
		}
		report.Signers = append(report.Signers, state)
	}
	return report, nil
}

func (a *Adapter) SendReminder(ctx context.Context, providerRequestID, signerEmail string) error {
	body := map[string]interface{}{
		"resendEnvelope": true,
	}
	return a.do(ctx, http.MethodPut, "/accounts/"+a.accountID+"/envelopes/"+providerRequestID+"?resend_envelope=true", body, nil)
}

func (a *Adapter) Cancel(ctx context.Context, providerRequestID string) error {
	body := map[string]string{
		"status":       "voided",
		"voidedReason": "cancelled by sender",
	}
	return a.do(ctx, http.MethodPut, "/accounts/"+a.accountID+"/envelopes/"+providerRequestID, body, nil)
}

type recipientViewResponse struct {
	URL string `json:"url"`
}

func (a *Adapter) GetEmbeddedSigningURL(ctx context.Context, providerRequestID, signerEmail string) (string, error) {
	body := map[string]string{
		"email":                signerEmail,
		"authenticationMethod": "none",
	}
	var out recipientViewResponse
	if err := a.do(ctx, http.MethodPost, "/accounts/"+a.accountID+"/envelopes/"+providerRequestID+"/views/recipient", body, &out); err != nil {
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

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return serrors.NewProviderError("docusign", "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return signing.ErrUnknownEnvelope
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return serrors.NewProviderError("docusign", fmt.Sprintf("%s (%s)", resp.Status, strings.TrimSpace(string(b))), nil)
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
