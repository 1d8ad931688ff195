package autorebase

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cooltabs/autorebase/internal/autorebase/mocks"
	"github.com/cooltabs/autorebase/internal/goorderr"
)

func TestLabelLockIsNotAcquiredOnRemoveError(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGithubClient(mockctrl)
	clt.EXPECT().
		RemoveLabel(gomock.Any(), repoOwner, repoName, 1, testLabel).
		Return(goorderr.NewRetryableAnytimeError(errors.New("502 bad gateway")))

	lock := NewLabelLock(clt, testLabel)
	assert.False(t, lock.TryAcquire(context.Background(), testRepo, 1))
}

func TestWithLockReleasesLockOnSuccess(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGithubClient(mockctrl)
	gomock.InOrder(
		clt.EXPECT().RemoveLabel(gomock.Any(), repoOwner, repoName, 1, testLabel).Return(nil),
		clt.EXPECT().AddLabel(gomock.Any(), repoOwner, repoName, 1, testLabel).Return(nil),
	)

	var called bool
	acquired, err := WithLock(context.Background(), NewLabelLock(clt, testLabel), testRepo, 1, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, called)
}

func TestWithLockKeepsLockOnFailure(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGithubClient(mockctrl)
	// AddLabel must not be called
	clt.EXPECT().RemoveLabel(gomock.Any(), repoOwner, repoName, 1, testLabel).Return(nil)

	fnErr := errors.New("conflict")
	acquired, err := WithLock(context.Background(), NewLabelLock(clt, testLabel), testRepo, 1, func(context.Context) error {
		return fnErr
	})
	assert.True(t, acquired)
	assert.ErrorIs(t, err, fnErr)
}
