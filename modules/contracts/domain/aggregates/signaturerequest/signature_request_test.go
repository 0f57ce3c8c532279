package signaturerequest_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

const testHash = contenthash.ContentHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func signerWithField(order int, email string) signaturerequest.Signer {
	return signaturerequest.Signer{
		ID:         uuid.New(),
		OrderIndex: order,
		Name:       "Signer " + email,
		Email:      email,
		Auth:       signaturerequest.AuthEmail,
		Status:     signaturerequest.SignerUnsent,
		Fields: []signaturerequest.Field{
			{Kind: signaturerequest.FieldSignature, Page: 1, X: 0.1, Y: 0.8, Width: 0.2, Height: 0.05, Required: true},
		},
	}
}

func newDraft(signers ...signaturerequest.Signer) signaturerequest.SignatureRequest {
	return signaturerequest.New(
		uuid.New(), uuid.New(),
		signaturerequest.ProviderDocuSign,
		testHash,
		signaturerequest.WithSequential(true),
		signaturerequest.WithSigners(signers),
	)
}

func TestMarkSent_Preconditions(t *testing.T) {
	t.Parallel()

	t.Run("no signers", func(t *testing.T) {
		t.Parallel()
		_, err := newDraft().MarkSent("env-1", time.Now())
		require.ErrorIs(t, err, signaturerequest.ErrNoSigners)
	})

	t.Run("signer without fields", func(t *testing.T) {
		t.Parallel()
		bare := signerWithField(0, "a@example.com")
		bare.Fields = nil
		_, err := newDraft(bare).MarkSent("env-1", time.Now())
		require.ErrorIs(t, err, signaturerequest.ErrSignerWithoutFields)
	})

	t.Run("duplicate send", func(t *testing.T) {
		t.Parallel()
		sent, err := newDraft(signerWithField(0, "a@example.com")).MarkSent("env-1", time.Now())
		require.NoError(t, err)
		_, err = sent.MarkSent("env-2", time.Now())
		require.ErrorIs(t, err, signaturerequest.ErrAlreadySent)
	})
}

func TestMarkSent_MovesSignersToSent(t *testing.T) {
	t.Parallel()

	now := time.Now()
	sent, err := newDraft(signerWithField(0, "a@example.com"), signerWithField(1, "b@example.com")).MarkSent("env-1", now)
	require.NoError(t, err)

	assert.Equal(t, signaturerequest.StatusSent, sent.Status())
	assert.Equal(t, "env-1", sent.ProviderRequestID())
	require.NotNil(t, sent.SentAt())
	for _, s := range sent.Signers() {
		assert.Equal(t, signaturerequest.SignerSent, s.Status)
		require.NotNil(t, s.SentAt)
	}
}

func TestApplySignerStatus_ForwardOnly(t *testing.T) {
	t.Parallel()

	signer := signerWithField(0, "a@example.com")
	sent, err := newDraft(signer).MarkSent("env-1", time.Now())
	require.NoError(t, err)

	viewed, err := sent.ApplySignerStatus(signer.ID, signaturerequest.SignerViewed, time.Now())
	require.NoError(t, err)
	require.Equal(t, signaturerequest.SignerViewed, viewed.Signers()[0].Status)

	// A stale "sent" report must not regress the viewed signer.
	_, err = viewed.ApplySignerStatus(signer.ID, signaturerequest.SignerSent, time.Now())
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.CodeStateTransition))
}

func TestApplySignerStatus_UnknownSigner(t *testing.T) {
	t.Parallel()

	sent, err := newDraft(signerWithField(0, "a@example.com")).MarkSent("env-1", time.Now())
	require.NoError(t, err)

	_, err = sent.ApplySignerStatus(uuid.New(), signaturerequest.SignerSigned, time.Now())
	require.ErrorIs(t, err, signaturerequest.ErrSignerNotFound)
}

func TestApplySignerStatus_AllSignedCompletesRequest(t *testing.T) {
	t.Parallel()

	first := signerWithField(0, "a@example.com")
	second := signerWithField(1, "b@example.com")
	sent, err := newDraft(first, second).MarkSent("env-1", time.Now())
	require.NoError(t, err)

	afterFirst, err := sent.ApplySignerStatus(first.ID, signaturerequest.SignerSigned, time.Now())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusSent, afterFirst.Status())
	assert.Nil(t, afterFirst.CompletedAt())

	done, err := afterFirst.ApplySignerStatus(second.ID, signaturerequest.SignerSigned, time.Now())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCompleted, done.Status())
	require.NotNil(t, done.CompletedAt())
}

func TestApplySignerStatus_DeclineIsTerminalForRequest(t *testing.T) {
	t.Parallel()

	first := signerWithField(0, "a@example.com")
	second := signerWithField(1, "b@example.com")
	sent, err := newDraft(first, second).MarkSent("env-1", time.Now())
	require.NoError(t, err)

	declined, err := sent.ApplySignerStatus(second.ID, signaturerequest.SignerDeclined, time.Now())
	require.NoError(t, err)
	require.Equal(t, signaturerequest.StatusDeclined, declined.Status())

	// Nothing moves once the request is declined.
	_, err = declined.ApplySignerStatus(first.ID, signaturerequest.SignerSigned, time.Now())
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.CodeStateTransition))
}

func TestNextSigner_LowestPendingOrder(t *testing.T) {
	t.Parallel()

	first := signerWithField(0, "a@example.com")
	second := signerWithField(1, "b@example.com")
	sent, err := newDraft(first, second).MarkSent("env-1", time.Now())
	require.NoError(t, err)

	next := sent.NextSigner()
	require.NotNil(t, next)
	assert.Equal(t, first.ID, next.ID)

	afterFirst, err := sent.ApplySignerStatus(first.ID, signaturerequest.SignerSigned, time.Now())
	require.NoError(t, err)
	next = afterFirst.NextSigner()
	require.NotNil(t, next)
	assert.Equal(t, second.ID, next.ID)

	done, err := afterFirst.ApplySignerStatus(second.ID, signaturerequest.SignerSigned, time.Now())
	require.NoError(t, err)
	assert.Nil(t, done.NextSigner())
}

func TestMarkCancelled(t *testing.T) {
	t.Parallel()

	sent, err := newDraft(signerWithField(0, "a@example.com")).MarkSent("env-1", time.Now())
	require.NoError(t, err)

	cancelled, err := sent.MarkCancelled(time.Now())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCancelled, cancelled.Status())

	_, err = cancelled.MarkCancelled(time.Now())
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.CodeStateTransition))
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	deadline := time.Now().Add(-time.Hour)
	req := signaturerequest.New(
		uuid.New(), uuid.New(),
		signaturerequest.ProviderClicksign,
		testHash,
		signaturerequest.WithExpiresAt(&deadline),
		signaturerequest.WithSigners([]signaturerequest.Signer{signerWithField(0, "a@example.com")}),
	)

	// Drafts never expire; only sent requests do.
	assert.False(t, req.IsExpired(time.Now()))

	sent, err := req.MarkSent("doc-key", time.Now())
	require.NoError(t, err)
	assert.True(t, sent.IsExpired(time.Now()))

	expired, err := sent.MarkExpired(time.Now())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusExpired, expired.Status())
}

func TestFieldValidate(t *testing.T) {
	t.Parallel()

	valid := signaturerequest.Field{Kind: signaturerequest.FieldSignature, Page: 1, X: 0.1, Y: 0.1, Width: 0.2, Height: 0.1}
	require.NoError(t, valid.Validate())

	badPage := valid
	badPage.Page = 0
	require.ErrorIs(t, badPage.Validate(), signaturerequest.ErrFieldInvalidPage)

	empty := valid
	empty.Width = 0
	require.ErrorIs(t, empty.Validate(), signaturerequest.ErrFieldEmptySize)

	offPage := valid
	offPage.X = 0.95
	require.ErrorIs(t, offPage.Validate(), signaturerequest.ErrFieldOffPage)
}
