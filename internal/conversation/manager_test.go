package conversation

import (
	"context"
	"testing"

	"github.com/artificer-ai/artificer/internal/models"
)

type fakeStore struct {
	messages       []models.PersistedMessage
	enqueuedJobs   []string
	enqueueErr     error
	createdConvErr error
}

func (f *fakeStore) CreateConversation(ctx context.Context, deviceID, taskID int64, title string) (models.Conversation, error) {
	if f.createdConvErr != nil {
		return models.Conversation{}, f.createdConvErr
	}
	return models.Conversation{ID: 1, DeviceID: deviceID, TaskID: taskID, Title: title}, nil
}

func (f *fakeStore) AppendMessage(ctx context.Context, conversationID int64, m models.Message) (models.PersistedMessage, error) {
	pm := models.PersistedMessage{ConversationID: conversationID, Role: m.Role, Content: m.Content, ToolCalls: m.ToolCalls, ToolCallID: m.ToolCallID}
	f.messages = append(f.messages, pm)
	return pm, nil
}

func (f *fakeStore) ConversationMessages(ctx context.Context, conversationID int64) ([]models.PersistedMessage, error) {
	return f.messages, nil
}

func (f *fakeStore) EnqueueJob(ctx context.Context, deviceID int64, method, arguments string, priority, maxRetries int64) (models.Job, error) {
	if f.enqueueErr != nil {
		return models.Job{}, f.enqueueErr
	}
	f.enqueuedJobs = append(f.enqueuedJobs, method)
	return models.Job{DeviceID: deviceID, Method: method}, nil
}

func withAssistantMessages(n int) []models.PersistedMessage {
	msgs := []models.PersistedMessage{{Role: "user", Content: "hi"}}
	for i := 0; i < n; i++ {
		msgs = append(msgs, models.PersistedMessage{Role: "assistant", Content: "ok"})
	}
	return msgs
}

func TestQueueFollowUpJobsFirstAssistantMessage(t *testing.T) {
	store := &fakeStore{messages: withAssistantMessages(1)}
	mgr := &Manager{Store: store}

	if err := mgr.QueueFollowUpJobs(context.Background(), 1, 1, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.enqueuedJobs) != 1 || store.enqueuedJobs[0] != models.TaskTitleGeneration {
		t.Errorf("expected only title_generation queued, got %v", store.enqueuedJobs)
	}
}

func TestQueueFollowUpJobsSummarizationCadence(t *testing.T) {
	store := &fakeStore{messages: withAssistantMessages(5)}
	mgr := &Manager{Store: store}

	if err := mgr.QueueFollowUpJobs(context.Background(), 1, 1, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]bool{models.TaskSummarization: false, models.TaskMemoryExtraction: false}
	for _, job := range store.enqueuedJobs {
		if _, ok := want[job]; ok {
			want[job] = true
		}
	}
	for job, found := range want {
		if !found {
			t.Errorf("expected %s to be enqueued on the %dth assistant message", job, SummarizeEvery)
		}
	}
	if len(store.enqueuedJobs) != 2 {
		t.Errorf("expected exactly 2 jobs queued (no title_generation re-fire), got %v", store.enqueuedJobs)
	}
}

func TestQueueFollowUpJobsOffCadenceEnqueuesNothing(t *testing.T) {
	store := &fakeStore{messages: withAssistantMessages(3)}
	mgr := &Manager{Store: store}

	if err := mgr.QueueFollowUpJobs(context.Background(), 1, 1, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.enqueuedJobs) != 0 {
		t.Errorf("expected no jobs queued at assistant count 3, got %v", store.enqueuedJobs)
	}
}
