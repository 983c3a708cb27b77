package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/quillchat/quill/internal/models"
)

func TestMessageRepository_GetAndFetchByIDs(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewMessageRepository(db)
	ctx := context.Background()

	id1 := insertMessage(t, db, testMessage{realmID: 1, recipientID: 10, senderID: 100, subject: "standup", content: "hi", channel: true})
	id2 := insertMessage(t, db, testMessage{realmID: 1, recipientID: 10, senderID: 101, subject: "standup", content: "hello", channel: true})

	got, err := repo.Get(ctx, id1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Subject != "standup" || got.SenderID != 100 {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.LastEditTime != nil || got.EditHistory != nil {
		t.Fatalf("expected no edit metadata, got %+v", got)
	}

	if _, err := repo.Get(ctx, 9999); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}

	messages, err := repo.FetchByIDs(ctx, []int64{id2, id1, 9999})
	if err != nil {
		t.Fatalf("FetchByIDs failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != id1 || messages[1].ID != id2 {
		t.Fatalf("expected id order [%d %d], got [%d %d]", id1, id2, messages[0].ID, messages[1].ID)
	}

	empty, err := repo.FetchByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("FetchByIDs(nil) failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no messages, got %d", len(empty))
	}
}

func TestUpdateEditHistory_FirstEdit(t *testing.T) {
	message := &models.Message{ID: 1, Subject: "old"}
	editTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := "old"
	next := "new"

	err := UpdateEditHistory(message, editTime, models.EditHistoryEvent{
		UserID:    7,
		Timestamp: editTime.Unix(),
		PrevTopic: &prev,
		Topic:     &next,
	})
	if err != nil {
		t.Fatalf("UpdateEditHistory failed: %v", err)
	}

	if message.LastEditTime == nil || !message.LastEditTime.Equal(editTime) {
		t.Fatalf("unexpected last edit time: %v", message.LastEditTime)
	}
	if message.EditHistory == nil {
		t.Fatal("expected edit history to be set")
	}

	var history []models.EditHistoryEvent
	if err := json.Unmarshal([]byte(*message.EditHistory), &history); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 event, got %d", len(history))
	}
	if history[0].UserID != 7 || *history[0].PrevTopic != "old" {
		t.Fatalf("unexpected event: %+v", history[0])
	}
}

func TestUpdateEditHistory_PrependsNewestFirst(t *testing.T) {
	existing := `[{"user_id":1,"timestamp":100},{"user_id":2,"timestamp":50}]`
	message := &models.Message{ID: 1, EditHistory: &existing}

	err := UpdateEditHistory(message, time.Now().UTC(), models.EditHistoryEvent{UserID: 3, Timestamp: 200})
	if err != nil {
		t.Fatalf("UpdateEditHistory failed: %v", err)
	}

	var history []models.EditHistoryEvent
	if err := json.Unmarshal([]byte(*message.EditHistory), &history); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 events, got %d", len(history))
	}
	// New event at index 0, pre-existing events keep relative order.
	if history[0].UserID != 3 || history[1].UserID != 1 || history[2].UserID != 2 {
		t.Fatalf("unexpected order: %+v", history)
	}
}

func TestUpdateEditHistory_MalformedHistory(t *testing.T) {
	broken := `{not json`
	message := &models.Message{ID: 1, EditHistory: &broken}

	err := UpdateEditHistory(message, time.Now().UTC(), models.EditHistoryEvent{UserID: 1})
	if err == nil {
		t.Fatal("expected error for malformed history")
	}
}

func TestMessageRepository_SaveForEdit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewMessageRepository(db)
	ctx := context.Background()

	id := insertMessage(t, db, testMessage{realmID: 1, recipientID: 10, senderID: 100, subject: "before", content: "body", channel: true})

	message, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	editTime := time.Now().UTC().Truncate(time.Second)
	prev := "before"
	next := "after"
	if err := UpdateEditHistory(message, editTime, models.EditHistoryEvent{
		UserID:    7,
		Timestamp: editTime.Unix(),
		PrevTopic: &prev,
		Topic:     &next,
	}); err != nil {
		t.Fatalf("UpdateEditHistory failed: %v", err)
	}
	message.Subject = "after"
	message.RecipientID = 20

	if err := repo.SaveForEdit(ctx, nil, message); err != nil {
		t.Fatalf("SaveForEdit failed: %v", err)
	}

	saved, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after save failed: %v", err)
	}
	if saved.Subject != "after" || saved.RecipientID != 20 {
		t.Fatalf("unexpected saved message: %+v", saved)
	}
	if saved.LastEditTime == nil || !saved.LastEditTime.Equal(editTime) {
		t.Fatalf("unexpected last edit time: %v", saved.LastEditTime)
	}
	if saved.EditHistory == nil {
		t.Fatal("expected edit history to persist")
	}

	missing := &models.Message{ID: 9999}
	if err := repo.SaveForEdit(ctx, nil, missing); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}
