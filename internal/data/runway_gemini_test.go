package data

import (
	"context"
	"testing"
	"time"

	"describe-service/internal/biz"
	"describe-service/internal/conf"
	"describe-service/internal/data/model"
	describeErrors "describe-service/internal/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/require"
)

func TestParseMotionClauses(t *testing.T) {
	clauses, err := parseMotionClauses("```json\n{\"low\": \" the lake ripples \", \"medium\": \"a deer walks\", \"high\": \"\"}\n```")
	require.NoError(t, err)
	require.Equal(t, &biz.MotionClauses{Low: "the lake ripples", Medium: "a deer walks"}, clauses)

	_, err = parseMotionClauses("I cannot describe this image.")
	require.Error(t, err)
	_, err = parseMotionClauses(`{"low": "", "medium": " ", "high": ""}`)
	require.Error(t, err)
	_, err = parseMotionClauses(`{"low": 1}`)
	require.Error(t, err)
}

func TestRunwayPromptGeneratorWithoutKey(t *testing.T) {
	d, _ := newTestData(t)
	t.Setenv(testGeminiKeySetting, "")
	c := &conf.Bootstrap{Describe: &conf.Describe{Gemini: &conf.Describe_Gemini{APIKeySetting: testGeminiKeySetting}}}
	gen := NewRunwayPromptGenerator(c, NewSettingsRepo(d, testLogger()), testLogger())

	_, err := gen.Generate(context.Background(), &biz.Image{Filename: "cat.png", MimeType: "image/png", Data: []byte("x")})
	require.Equal(t, describeErrors.ReasonProviderNotConfigured, kerrors.Reason(err))
	require.Equal(t, "Gemini API key not configured. Please ask admin to add it.", describeErrors.Message(err))
}

func TestRunwayPromptRepoCreate(t *testing.T) {
	d, _ := newTestData(t)
	repo := NewRunwayPromptRepo(d, testLogger())
	now := time.Now()

	require.NoError(t, repo.Create(context.Background(), &biz.RunwayPromptRecord{
		ID: "r1", UserID: "u1", Filename: "a.png", Mode: "runway",
		Prompts:  &biz.MotionClauses{Low: "low prompt", Medium: "medium prompt", High: "high prompt"},
		FileSize: 10, MimeType: "image/png", CreatedAt: now,
	}))
	require.NoError(t, repo.Create(context.Background(), &biz.RunwayPromptRecord{
		ID: "r2", UserID: "u1", Filename: "b.png", Mode: "describe",
		FileSize: 20, MimeType: "image/jpeg", CreatedAt: now,
	}))

	var runway, other model.RunwayPrompt
	require.NoError(t, d.db.First(&runway, "id = ?", "r1").Error)
	require.NotNil(t, runway.HighMotion)
	require.Equal(t, "high prompt", *runway.HighMotion)
	require.Equal(t, int64(10), runway.FileSize)

	require.NoError(t, d.db.First(&other, "id = ?", "r2").Error)
	require.Equal(t, "describe", other.Mode)
	require.Nil(t, other.LowMotion)
	require.Nil(t, other.MediumMotion)
	require.Nil(t, other.HighMotion)
}
