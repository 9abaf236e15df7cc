package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dit/internal/modea"
)

func TestLinksFromBook(t *testing.T) {
	book := mineBook(t, 1, modea.Marker("a"), modea.UpdateVersion(10200), modea.CastSpell(modea.FireBall))

	links, err := LinksFromBook(book)
	require.NoError(t, err)
	require.Len(t, links, 3)

	assert.Equal(t, int64(0), links[0].Seq)
	assert.Equal(t, "marker", links[0].ActionType)
	assert.Equal(t, `{"type":"marker","content":"a"}`, links[0].Action)
	assert.Equal(t, 5, links[0].BitCost)
	assert.Equal(t, book.Ledger().At(0).Key.String(), links[0].Key)

	assert.Equal(t, "updateversion", links[1].ActionType)
	assert.Equal(t, 1, links[1].BitCost)
	assert.Equal(t, "castspell", links[2].ActionType)
	assert.Equal(t, 8, links[2].BitCost)
}

func TestImportLedger_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	book := mineBook(t, 2, modea.Marker("a"), modea.SeekEncounter())

	links, err := LinksFromBook(book)
	require.NoError(t, err)

	n, err := s.ImportLedger(ctx, testChain("game"), links)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := s.ReadLinks(ctx, "game")
	require.NoError(t, err)
	assert.Equal(t, links, stored)

	ledger, err := LedgerFromLinks[modea.ActionA](stored)
	require.NoError(t, err)
	assert.Equal(t, book.Ledger().Links(), ledger.Links())
}

func TestImportLedger_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	book := mineBook(t, 3, modea.Marker("a"), modea.Marker("b"))

	links, err := LinksFromBook(book)
	require.NoError(t, err)

	_, err = s.ImportLedger(ctx, testChain("game"), links[:1])
	require.NoError(t, err)

	n, err := s.ImportLedger(ctx, testChain("game"), links)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the new link is inserted")

	n, err = s.ImportLedger(ctx, testChain("game"), links)
	require.NoError(t, err)
	assert.Zero(t, n)

	stored, err := s.ReadLinks(ctx, "game")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestImportLedger_Conflict(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := LinksFromBook(mineBook(t, 4, modea.Marker("a"), modea.Marker("b")))
	require.NoError(t, err)
	_, err = s.ImportLedger(ctx, testChain("game"), first)
	require.NoError(t, err)

	// a different history under the same chain id
	other, err := LinksFromBook(mineBook(t, 5, modea.Marker("x"), modea.Marker("y"), modea.Marker("z")))
	require.NoError(t, err)
	_, err = s.ImportLedger(ctx, testChain("game"), other)
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(0), ce.Seq)

	// the failed import wrote nothing
	stored, err := s.ReadLinks(ctx, "game")
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestImportLedger_ModeMismatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ImportLedger(ctx, testChain("game"), nil)
	require.NoError(t, err)

	c := testChain("game")
	c.Mode = "B"
	_, err = s.ImportLedger(ctx, c, nil)
	assert.Error(t, err)
}

func TestImportLedger_Header(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testChain("game")
	c.Header = "#hp 42"
	_, err := s.ImportLedger(ctx, c, nil)
	require.NoError(t, err)

	chains, err := s.ListChains(ctx)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "#hp 42", chains[0].Header)

	c.Header = ""
	_, err = s.ImportLedger(ctx, c, nil)
	assert.Error(t, err, "a different header is a different chain")
}

func TestListChains(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	chains, err := s.ListChains(ctx)
	require.NoError(t, err)
	assert.Empty(t, chains)
	assert.NotNil(t, chains)

	links, err := LinksFromBook(mineBook(t, 6, modea.Marker("a"), modea.Marker("b")))
	require.NoError(t, err)
	_, err = s.ImportLedger(ctx, testChain("zeta"), links)
	require.NoError(t, err)
	_, err = s.ImportLedger(ctx, testChain("alpha"), nil)
	require.NoError(t, err)

	chains, err = s.ListChains(ctx)
	require.NoError(t, err)
	require.Len(t, chains, 2)
	assert.Equal(t, "alpha", chains[0].ID)
	assert.Equal(t, int64(0), chains[0].Links)
	assert.Equal(t, "zeta", chains[1].ID)
	assert.Equal(t, int64(2), chains[1].Links)
	assert.Equal(t, "A", chains[1].Mode)
}

func TestCountByType(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	links, err := LinksFromBook(mineBook(t, 7, modea.Marker("a"), modea.SeekEncounter(), modea.Marker("b")))
	require.NoError(t, err)
	_, err = s.ImportLedger(ctx, testChain("game"), links)
	require.NoError(t, err)

	counts, err := s.CountByType(ctx, "game")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"marker": 2, "attemptseekencounter": 1}, counts)
}

func TestVerifications(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ImportLedger(ctx, testChain("game"), nil)
	require.NoError(t, err)

	_, ok, err := s.LastVerification(ctx, "game")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RecordVerification(ctx, Verification{ChainID: "game", RunID: "run-1", Links: 3, OK: true}))
	bad := Verification{ChainID: "game", RunID: "run-2", Links: 1, OK: false, FailedLine: 4, ErrorCode: "E_FAILED_VALIDATION"}
	require.NoError(t, s.RecordVerification(ctx, bad))
	// duplicate run id is ignored
	require.NoError(t, s.RecordVerification(ctx, bad))

	got, ok, err := s.LastVerification(ctx, "game")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bad, got)
}

func TestRecordVerification_UnknownChain(t *testing.T) {
	s := createTestStore(t)
	err := s.RecordVerification(context.Background(), Verification{ChainID: "ghost", RunID: "r"})
	assert.Error(t, err, "foreign key must reject an unknown chain")
}

func TestLedgerFromLinks_Gap(t *testing.T) {
	_, err := LedgerFromLinks[modea.ActionA]([]Link{{Seq: 1, Key: "00000000", Action: `{"type":"noop"}`}})
	assert.Error(t, err)
}
