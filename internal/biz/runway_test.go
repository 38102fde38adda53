package biz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/require"
)

type fakePromptGenerator struct {
	clauses *MotionClauses
	err     error
	calls   int
}

func (g *fakePromptGenerator) Generate(ctx context.Context, img *Image) (*MotionClauses, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.clauses, nil
}

type memPromptRepo struct {
	mu      sync.Mutex
	records []*RunwayPromptRecord
	err     error
}

func (r *memPromptRepo) Create(ctx context.Context, rec *RunwayPromptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func newRunwayFixture(credits int64) (*RunwayPromptUseCase, *memLedger, *fakePromptGenerator, *memPromptRepo) {
	ledger := newMemLedger(map[string]int64{"u1": credits})
	gen := &fakePromptGenerator{clauses: &MotionClauses{
		Low:    "the lake ripples under soft light",
		Medium: "deer walks across the meadow",
		High:   "An eagle dives toward the water",
	}}
	repo := &memPromptRepo{}
	uc := NewRunwayPromptUseCase(NewCreditLedgerUseCase(ledger, testLogger()), gen, repo, testLogger())
	return uc, ledger, gen, repo
}

func pngImage(name string) *Image {
	return &Image{Filename: name, MimeType: "image/png", Data: []byte("png")}
}

func TestRunwayPromptGenerate(t *testing.T) {
	uc, ledger, _, repo := newRunwayFixture(3)

	res, err := uc.Generate(context.Background(), &RunwayPromptRequest{UserID: "u1", Image: pngImage("lake.png")})
	require.NoError(t, err)
	require.Equal(t, "a smooth dolly camera moves slowly toward the lake ripples under soft light cinematic live-action", res.Low)
	require.Equal(t, "a steady tracking camera moves forward toward the subject deer walks across the meadow cinematic live-action", res.Medium)
	require.Equal(t, "a dynamic handheld camera moves quickly toward An eagle dives toward the water cinematic live-action", res.High)
	require.Equal(t, int64(2), res.CreditsRemaining)
	require.Equal(t, int64(2), ledger.balance("u1"))
	require.Equal(t, 1, ledger.debits("u1"))

	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	require.Equal(t, constants.RunwayModeRunway, rec.Mode)
	require.Equal(t, "lake.png", rec.Filename)
	require.Equal(t, res.High, rec.Prompts.High)
}

func TestRunwayPromptHistoryOptions(t *testing.T) {
	uc, _, _, repo := newRunwayFixture(3)

	_, err := uc.Generate(context.Background(), &RunwayPromptRequest{UserID: "u1", Image: pngImage("a.png"), SkipHistory: true})
	require.NoError(t, err)
	require.Empty(t, repo.records)

	_, err = uc.Generate(context.Background(), &RunwayPromptRequest{UserID: "u1", Image: pngImage("b.png"), Mode: "describe"})
	require.NoError(t, err)
	require.Len(t, repo.records, 1)
	require.Nil(t, repo.records[0].Prompts)

	// 历史写入失败不影响结果和扣费
	repo.err = errors.New("insert failed")
	res, err := uc.Generate(context.Background(), &RunwayPromptRequest{UserID: "u1", Image: pngImage("c.png")})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.CreditsRemaining)
}

func TestRunwayPromptInsufficientCredits(t *testing.T) {
	uc, ledger, gen, _ := newRunwayFixture(0)

	_, err := uc.Generate(context.Background(), &RunwayPromptRequest{UserID: "u1", Image: pngImage("a.png")})
	require.True(t, describeErrors.IsInsufficientCredits(err))
	require.Equal(t, int32(402), kerrors.FromError(err).Code)
	require.Zero(t, gen.calls)
	require.Zero(t, ledger.debits("u1"))
}

func TestRunwayPromptFailureDoesNotCharge(t *testing.T) {
	uc, ledger, gen, repo := newRunwayFixture(2)
	gen.err = describeErrors.ErrPromptFailed(errors.New("upstream 503"))

	_, err := uc.Generate(context.Background(), &RunwayPromptRequest{UserID: "u1", Image: pngImage("a.png")})
	require.Equal(t, describeErrors.ReasonPromptFailed, kerrors.Reason(err))
	require.Equal(t, int64(2), ledger.balance("u1"))
	require.Zero(t, ledger.debits("u1"))
	require.Empty(t, repo.records)
}

func TestRunwayPromptRejectsBadInput(t *testing.T) {
	uc, _, gen, _ := newRunwayFixture(2)

	_, err := uc.Generate(context.Background(), &RunwayPromptRequest{UserID: "u1"})
	require.Equal(t, describeErrors.ReasonInvalidArgument, kerrors.Reason(err))
	require.Equal(t, "No image provided", describeErrors.Message(err))

	_, err = uc.Generate(context.Background(), &RunwayPromptRequest{UserID: "u1",
		Image: &Image{Filename: "notes.txt", MimeType: "text/plain", Data: []byte("text")}})
	require.Equal(t, describeErrors.ReasonInvalidArgument, kerrors.Reason(err))

	_, err = uc.Generate(context.Background(), &RunwayPromptRequest{UserID: "ghost", Image: pngImage("a.png")})
	require.True(t, describeErrors.IsUserNotFound(err))
	require.Zero(t, gen.calls)
}

func TestBuildRunwayPrompt(t *testing.T) {
	require.Empty(t, BuildRunwayPrompt(constants.MotionLow, "  "))
	require.Equal(t, "a steady tracking camera moves forward toward a dog runs cinematic live-action",
		BuildRunwayPrompt(constants.MotionMedium, "a   dog\nruns"))
	require.Equal(t, "a dynamic handheld camera moves quickly toward the subject theater lights flicker cinematic live-action",
		BuildRunwayPrompt(constants.MotionHigh, "theater lights flicker"))
}
