package expopush

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSplitBatches(t *testing.T) {
	cases := []struct {
		count     int
		wantSizes []int
	}{
		{0, nil},
		{1, []int{1}},
		{90, []int{90}},
		{91, []int{90, 1}},
		{200, []int{90, 90, 20}},
	}

	for _, c := range cases {
		messages := make([]Message, c.count)
		batches := splitBatches(messages, 90)

		var sizes []int
		for _, b := range batches {
			sizes = append(sizes, len(b))
		}

		if fmt.Sprint(sizes) != fmt.Sprint(c.wantSizes) {
			t.Errorf("splitBatches with %d messages: got sizes %v, want %v", c.count, sizes, c.wantSizes)
		}
	}
}

func TestSendBatchesRequests(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Unexpected error reading body: %v", err)
		}

		var batch []Message
		if err := json.Unmarshal(body, &batch); err != nil {
			t.Errorf("Unexpected error decoding batch: %v", err)
		}
		batchSizes = append(batchSizes, len(batch))

		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := New(server.URL)

	messages := make([]Message, 181)
	for i := range messages {
		messages[i] = Message{To: fmt.Sprintf("token-%d", i), Title: "t", Body: "b"}
	}

	if err := client.Send(context.Background(), messages); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if fmt.Sprint(batchSizes) != fmt.Sprint([]int{90, 90, 1}) {
		t.Fatalf("Got batch sizes %v, want [90 90 1]", batchSizes)
	}
}

func TestSendReportsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL)

	err := client.Send(context.Background(), []Message{{To: "token", Title: "t", Body: "b"}})
	if err == nil {
		t.Fatalf("No error despite non-2XX gateway response")
	}
}
