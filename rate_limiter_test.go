package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckUploadLimits_BurstAndTempBan(t *testing.T) {
	b, _, _, clock := newTestBot(t)

	// The configured burst is admitted outright.
	for i := 0; i < b.config.UploadsPerHour; i++ {
		assert.True(t, b.checkUploadLimits(regularID), "upload %d within the burst", i+1)
	}

	// The next upload trips the temp ban.
	assert.False(t, b.checkUploadLimits(regularID))

	// Still banned partway through the window, even though no further
	// uploads were attempted.
	clock.Advance(b.config.TempBanDuration / 2)
	assert.False(t, b.checkUploadLimits(regularID))
}

func TestCheckUploadLimits_PerUserIsolation(t *testing.T) {
	b, _, _, _ := newTestBot(t)

	for i := 0; i < b.config.UploadsPerHour+1; i++ {
		b.checkUploadLimits(regularID)
	}

	// One user exhausting its budget must not throttle another.
	assert.True(t, b.checkUploadLimits(adminID))
}

func TestCheckUploadLimits_Concurrency(t *testing.T) {
	b, _, _, _ := newTestBot(t)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(id int64) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 20; j++ {
				b.checkUploadLimits(id)
			}
		}(int64(1000 + i))
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	b.uploadLimitersMu.Lock()
	defer b.uploadLimitersMu.Unlock()
	assert.Len(t, b.uploadLimiters, 10)
}

func TestUploadLimitReachedReply(t *testing.T) {
	b, mockTgClient, store, _ := newTestBot(t)
	sent := recordMessages(mockTgClient)

	// Exhaust the budget, then send one more document.
	for i := 0; i < b.config.UploadsPerHour; i++ {
		b.checkUploadLimits(regularID)
	}

	b.handleUpdate(context.Background(), nil, documentUpdate(regularID, regularID, "good.torrent", 10))

	assert.Contains(t, fmt.Sprint(*sent), "Upload limit reached")

	var uploads int64
	store.db.Model(&TorrentUpload{}).Count(&uploads)
	assert.Equal(t, int64(0), uploads)
}
