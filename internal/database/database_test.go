// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests. Concurrent CGO calls
// from many parallel tests can hang under CI resource pressure, so the
// semaphore is held for the whole test and released by t.Cleanup.
var testDBSemaphore = make(chan struct{}, 1)

// testDBMutex serializes the New() call itself.
var testDBMutex sync.Mutex

// setupTestDB creates an in-memory database, failing after 120s instead of
// hanging the test binary.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	}

	type result struct {
		db  *DB
		err error
	}

	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

// insertArtistRow writes a raw user_artists row, bypassing SaveProfile so
// tests can store malformed genre JSON.
func insertArtistRow(t *testing.T, db *DB, userID, artistID, name, genres string) {
	t.Helper()
	_, err := db.conn.Exec(
		`INSERT INTO user_artists (user_id, artist_id, artist_name, genres, popularity, image_url) VALUES (?, ?, ?, ?, 50, NULL)`,
		userID, artistID, nullIfEmpty(name), genres)
	if err != nil {
		t.Fatalf("insert user_artists row: %v", err)
	}
}

func saveUser(t *testing.T, db *DB, spotifyID, nickname string, artists ...models.Artist) *models.Profile {
	t.Helper()
	p, err := db.SaveProfile(context.Background(), &models.Profile{SpotifyUserID: spotifyID, Nickname: nickname}, artists)
	if err != nil {
		t.Fatalf("SaveProfile(%s) error = %v", spotifyID, err)
	}
	return p
}

func TestNew_InitializesSchema(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion() error = %v", err)
	}
	if want := len(migrations()); version != want {
		t.Errorf("schema version = %d, want %d", version, want)
	}

	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if *counts != (RecordCounts{}) {
		t.Errorf("fresh database counts = %+v, want zeros", counts)
	}

	// Re-running migrations is a no-op.
	if err := db.runVersionedMigrations(); err != nil {
		t.Errorf("second runVersionedMigrations() error = %v", err)
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.SchemaVersion != len(migrations()) {
		t.Errorf("Stats().SchemaVersion = %d, want %d", stats.SchemaVersion, len(migrations()))
	}
}

func TestSaveProfile_CreateThenUpdate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := saveUser(t, db, "spotify-1", "alice",
		models.Artist{ID: "a1", Name: "Artist One", Genres: []string{"Indie Rock"}, Popularity: 70},
		models.Artist{ID: "a2", Name: "Artist Two", Popularity: 20},
	)
	if first.ID == "" {
		t.Fatal("SaveProfile() returned empty id")
	}

	second, err := db.SaveProfile(ctx,
		&models.Profile{SpotifyUserID: "spotify-1", Nickname: "alice2", Bio: "hi"},
		[]models.Artist{{ID: "a3", Name: "Artist Three", Genres: []string{"jazz"}}},
	)
	if err != nil {
		t.Fatalf("SaveProfile() update error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("update changed id: %s -> %s", first.ID, second.ID)
	}

	got, err := db.GetProfileBySpotifyID(ctx, "spotify-1")
	if err != nil {
		t.Fatalf("GetProfileBySpotifyID() error = %v", err)
	}
	if got.Nickname != "alice2" || got.Bio != "hi" {
		t.Errorf("profile = %+v, want updated nickname and bio", got)
	}

	artists, err := db.GetUserArtists(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetUserArtists() error = %v", err)
	}
	if len(artists) != 1 || artists[0].ID != "a3" {
		t.Errorf("artists = %+v, want only a3 after replacement", artists)
	}
	if len(artists[0].Genres) != 1 || artists[0].Genres[0] != "jazz" {
		t.Errorf("genres = %v, want [jazz]", artists[0].Genres)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetProfile(context.Background(), "missing"); err != ErrUserNotFound {
		t.Errorf("GetProfile() error = %v, want ErrUserNotFound", err)
	}
}

func TestBatchTx_LoadUserAttributes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertArtistRow(t, db, "u2", "x", "X", `[" Rock ", "POP"]`)
	insertArtistRow(t, db, "u1", "x", "X", `["rock"]`)
	insertArtistRow(t, db, "u1", "y", "", `["jazz"]`)
	insertArtistRow(t, db, "u1", "z", "Zed", `not json`)

	tx, err := db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	defer func() { _ = tx.Rollback() }()

	snap, err := tx.LoadUserAttributes(ctx)
	if err != nil {
		t.Fatalf("LoadUserAttributes() error = %v", err)
	}

	if len(snap.Order) != 2 || snap.Order[0] != "u1" || snap.Order[1] != "u2" {
		t.Errorf("Order = %v, want [u1 u2]", snap.Order)
	}

	u1 := snap.Users["u1"]
	if len(u1.Artists) != 3 {
		t.Errorf("u1 artists = %v, want x, y and z (malformed genres keep the artist)", u1.Artists)
	}
	if len(u1.Genres) != 2 {
		t.Errorf("u1 genres = %v, want rock and jazz", u1.Genres)
	}

	u2 := snap.Users["u2"]
	for _, g := range []string{"rock", "pop"} {
		if _, ok := u2.Genres[g]; !ok {
			t.Errorf("u2 missing normalized genre %q: %v", g, u2.Genres)
		}
	}

	if _, ok := snap.Artists["y"]; ok {
		t.Error("artist without a name should not be resolvable")
	}
	if snap.Artists["z"].Name != "Zed" {
		t.Errorf("artist z = %+v, want name Zed", snap.Artists["z"])
	}
}

// rollbackOnCleanup releases tx if the test fails before committing. The DB
// close cleanup would otherwise block on the open transaction.
func rollbackOnCleanup(t *testing.T, tx *BatchTx) {
	t.Helper()
	t.Cleanup(func() { _ = tx.Rollback() })
}

func pairCalculatedAt(t *testing.T, db *DB, a, b string) time.Time {
	t.Helper()
	var at time.Time
	err := db.conn.QueryRowContext(context.Background(),
		`SELECT calculated_at FROM similarities WHERE user_a_id = ? AND user_b_id = ?`, a, b).Scan(&at)
	if err != nil {
		t.Fatalf("read calculated_at for %s-%s: %v", a, b, err)
	}
	if at.IsZero() {
		t.Fatalf("calculated_at for %s-%s is zero", a, b)
	}
	return at
}

func TestBatchTx_ReplaceAndUpsertSimilarities(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tx, err := db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	initial := []models.SimilarityRecord{
		{UserA: "a", UserB: "b", ArtistSimilarity: 0.5, CombinedSimilarity: 0.3,
			CommonArtists: []models.CommonArtist{{ID: "1", Name: "One"}}, CommonGenres: []string{"rock"}},
		{UserA: "a", UserB: "c"},
	}
	if err := tx.ReplaceSimilarities(ctx, initial); err != nil {
		t.Fatalf("ReplaceSimilarities() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	before := pairCalculatedAt(t, db, "a", "c")

	tx, err = db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	updates := []models.SimilarityRecord{
		{UserA: "a", UserB: "c", ArtistSimilarity: 1, GenreSimilarity: 1, CombinedSimilarity: 1},
		{UserA: "b", UserB: "d", CombinedSimilarity: 0.1},
	}
	if err := tx.UpsertSimilarities(ctx, updates); err != nil {
		t.Fatalf("UpsertSimilarities() error = %v", err)
	}
	records, err := tx.LoadSimilarities(ctx)
	if err != nil {
		t.Fatalf("LoadSimilarities() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if after := pairCalculatedAt(t, db, "a", "c"); after.Before(before) {
		t.Errorf("a-c calculated_at = %v, want refreshed (>= %v)", after, before)
	}

	if len(records) != 3 {
		t.Fatalf("LoadSimilarities() returned %d rows, want 3: %+v", len(records), records)
	}
	byPair := make(map[string]models.SimilarityRecord)
	for _, r := range records {
		byPair[r.UserA+"-"+r.UserB] = r
	}
	if byPair["a-b"].CombinedSimilarity != 0.3 {
		t.Errorf("a-b combined = %v, want untouched 0.3", byPair["a-b"].CombinedSimilarity)
	}
	if byPair["a-c"].CombinedSimilarity != 1 {
		t.Errorf("a-c combined = %v, want upserted 1", byPair["a-c"].CombinedSimilarity)
	}
	if _, ok := byPair["b-d"]; !ok {
		t.Error("upsert did not insert new pair b-d")
	}

	// Full replacement drops rows not in the new set.
	tx, err = db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	if err := tx.ReplaceSimilarities(ctx, []models.SimilarityRecord{{UserA: "x", UserB: "y"}}); err != nil {
		t.Fatalf("ReplaceSimilarities() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if counts.Similarities != 1 {
		t.Errorf("similarities after replace = %d, want 1", counts.Similarities)
	}
}

func TestBatchTx_LargeInsertSpansChunks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var records []models.SimilarityRecord
	for i := 0; i < insertChunkSize*2+7; i++ {
		records = append(records, models.SimilarityRecord{
			UserA: "a", UserB: fmt.Sprintf("b%04d", i), CombinedSimilarity: 0.5,
		})
	}

	tx, err := db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	if err := tx.ReplaceSimilarities(ctx, records); err != nil {
		t.Fatalf("ReplaceSimilarities() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if counts.Similarities != int64(len(records)) {
		t.Errorf("similarities = %d, want %d", counts.Similarities, len(records))
	}
}

func TestBatchTx_RollbackDiscardsWrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tx, err := db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	if err := tx.ReplaceSimilarities(ctx, []models.SimilarityRecord{{UserA: "a", UserB: "b"}}); err != nil {
		t.Fatalf("ReplaceSimilarities() error = %v", err)
	}
	if err := tx.ReplaceCommunities(ctx, []models.CommunityAssignment{{UserID: "a"}, {UserID: "b"}}); err != nil {
		t.Fatalf("ReplaceCommunities() error = %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("second Rollback() error = %v, want nil", err)
	}

	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if counts.Similarities != 0 || counts.Communities != 0 {
		t.Errorf("counts after rollback = %+v, want no similarities or communities", counts)
	}
}

func TestBatchTx_RejectsNonCanonicalPair(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tx, err := db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	defer func() { _ = tx.Rollback() }()

	if err := tx.UpsertSimilarities(ctx, []models.SimilarityRecord{{UserA: "b", UserB: "a"}}); err == nil {
		t.Error("UpsertSimilarities() accepted a non-canonical pair")
	}
}

func TestBatchTx_Communities(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tx, err := db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	assignments := []models.CommunityAssignment{
		{UserID: "a", CommunityID: 0},
		{UserID: "b", CommunityID: 0},
		{UserID: "c", CommunityID: 1},
	}
	if err := tx.ReplaceCommunities(ctx, assignments); err != nil {
		t.Fatalf("ReplaceCommunities() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	id, ok, err := db.GetCommunity(ctx, "b")
	if err != nil || !ok || id != 0 {
		t.Errorf("GetCommunity(b) = %d, %v, %v; want 0, true, nil", id, ok, err)
	}
	members, err := db.GetCommunityMembers(ctx, 0)
	if err != nil {
		t.Fatalf("GetCommunityMembers() error = %v", err)
	}
	if len(members) != 2 || members[0] != "a" || members[1] != "b" {
		t.Errorf("members = %v, want [a b]", members)
	}

	tx, err = db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	if err := tx.ClearCommunities(ctx); err != nil {
		t.Fatalf("ClearCommunities() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, ok, err := db.GetCommunity(ctx, "b"); err != nil || ok {
		t.Errorf("GetCommunity(b) after clear: ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestGetMatches_CommunityBonus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	me := saveUser(t, db, "s-me", "me")
	near := saveUser(t, db, "s-near", "near")
	far := saveUser(t, db, "s-far", "far")
	weak := saveUser(t, db, "s-weak", "weak")

	pair := func(a, b string, combined float64) models.SimilarityRecord {
		if a > b {
			a, b = b, a
		}
		return models.SimilarityRecord{UserA: a, UserB: b, CombinedSimilarity: combined,
			CommonArtists: []models.CommonArtist{{ID: "1", Name: "One"}}, CommonGenres: []string{"rock"}}
	}

	tx, err := db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	err = tx.ReplaceSimilarities(ctx, []models.SimilarityRecord{
		pair(me.ID, near.ID, 0.30),
		pair(me.ID, far.ID, 0.40),
		pair(me.ID, weak.ID, 0.10),
	})
	if err != nil {
		t.Fatalf("ReplaceSimilarities() error = %v", err)
	}
	err = tx.ReplaceCommunities(ctx, []models.CommunityAssignment{
		{UserID: me.ID, CommunityID: 0},
		{UserID: near.ID, CommunityID: 0},
		{UserID: far.ID, CommunityID: 1},
	})
	if err != nil {
		t.Fatalf("ReplaceCommunities() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	matches, err := db.GetMatches(ctx, models.MatchQuery{UserID: me.ID, Threshold: 0.20, CommunityBonus: 0.2, Limit: 10})
	if err != nil {
		t.Fatalf("GetMatches() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("GetMatches() returned %d matches, want 2 (weak is below threshold): %+v", len(matches), matches)
	}
	if matches[0].UserID != near.ID || !matches[0].SameCommunity {
		t.Errorf("first match = %+v, want near with community bonus", matches[0])
	}
	if diff := matches[0].MatchScore - 0.50; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("near match score = %v, want 0.50", matches[0].MatchScore)
	}
	if matches[1].UserID != far.ID || matches[1].SameCommunity {
		t.Errorf("second match = %+v, want far without bonus", matches[1])
	}
	if matches[1].CommunityID == nil || *matches[1].CommunityID != 1 {
		t.Errorf("far community = %v, want 1", matches[1].CommunityID)
	}
	if len(matches[0].CommonArtists) != 1 || matches[0].CommonArtists[0].Name != "One" {
		t.Errorf("common artists = %+v, want decoded evidence", matches[0].CommonArtists)
	}
}

func TestGetMatches_NoCommunity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	me := saveUser(t, db, "s-me", "me")
	other := saveUser(t, db, "s-other", "other")
	a, b := me.ID, other.ID
	if a > b {
		a, b = b, a
	}

	tx, err := db.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}
	rollbackOnCleanup(t, tx)
	if err := tx.ReplaceSimilarities(ctx, []models.SimilarityRecord{{UserA: a, UserB: b, CombinedSimilarity: 0.25}}); err != nil {
		t.Fatalf("ReplaceSimilarities() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	matches, err := db.GetMatches(ctx, models.MatchQuery{UserID: me.ID, Threshold: 0.20, CommunityBonus: 0.2, Limit: 10})
	if err != nil {
		t.Fatalf("GetMatches() error = %v", err)
	}
	if len(matches) != 1 || matches[0].SameCommunity || matches[0].MatchScore != 0.25 {
		t.Errorf("matches = %+v, want one match scored 0.25 without bonus", matches)
	}
}

func TestGetMatches_UnknownUser(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetMatches(context.Background(), models.MatchQuery{UserID: "ghost", Threshold: 0.2, Limit: 10})
	if err != ErrUserNotFound {
		t.Errorf("GetMatches() error = %v, want ErrUserNotFound", err)
	}
}

func TestDSN(t *testing.T) {
	got := dsn(&config.DatabaseConfig{Path: "/data/tg.duckdb", Threads: 2, MaxMemory: "512MB"})
	for _, want := range []string{
		"/data/tg.duckdb?",
		"threads=2",
		"max_memory=512MB",
		"preserve_insertion_order=false",
		"autoload_known_extensions=false",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn() = %q, missing %q", got, want)
		}
	}

	if got := dsn(&config.DatabaseConfig{Path: memoryPath}); strings.Contains(got, "max_memory") {
		t.Errorf("dsn() without MaxMemory = %q", got)
	}
}

func TestIsTransactionConflict(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("commit: %w", fmt.Errorf("TransactionContext Error: Transaction conflict: cannot update")), true},
		{fmt.Errorf("Conflict on update of row 3"), true},
		{ErrUserNotFound, false},
	}
	for _, tt := range tests {
		if got := IsTransactionConflict(tt.err); got != tt.want {
			t.Errorf("IsTransactionConflict(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
