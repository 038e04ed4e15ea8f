package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zeebo/bencode"
)

const testLimitBytes = 50 * 1024 * 1024

// encodeTorrent builds a bencoded descriptor from a plain map so the
// validator sees the same wire format real clients produce.
func encodeTorrent(t *testing.T, torrent map[string]interface{}) []byte {
	t.Helper()
	data, err := bencode.EncodeBytes(torrent)
	if err != nil {
		t.Fatalf("Failed to encode test torrent: %v", err)
	}
	return data
}

func singleFileTorrent(t *testing.T) []byte {
	return encodeTorrent(t, map[string]interface{}{
		"announce":   "http://tracker.example.com/announce",
		"comment":    "test descriptor",
		"created by": "test suite",
		"info": map[string]interface{}{
			"name":         "ubuntu.iso",
			"piece length": 16384,
			"pieces":       strings.Repeat("x", 40), // two pieces
			"length":       123456,
		},
	})
}

func multiFileTorrent(t *testing.T) []byte {
	return encodeTorrent(t, map[string]interface{}{
		"announce": "http://tracker.example.com/announce",
		"announce-list": [][]string{
			{"http://tracker.example.com/announce"},
			{"udp://backup.example.org/announce"},
		},
		"info": map[string]interface{}{
			"name":         "album",
			"piece length": 32768,
			"pieces":       strings.Repeat("y", 60), // three pieces
			"files": []map[string]interface{}{
				{"length": 1000, "path": []string{"disc1", "track01.flac"}},
				{"length": 2500, "path": []string{"disc1", "track02.flac"}},
			},
		},
	})
}

func TestValidate_SingleFile(t *testing.T) {
	v := NewTorrentValidator([]string{".torrent"})
	data := singleFileTorrent(t)

	meta, err := v.Validate("ubuntu.torrent", int64(len(data)), testLimitBytes, data)
	assert.NoError(t, err)

	assert.Equal(t, "ubuntu.iso", meta.Name)
	assert.Equal(t, int64(16384), meta.PieceLength)
	assert.Equal(t, 2, meta.PieceCount)
	assert.Equal(t, int64(123456), meta.TotalSize)
	assert.Equal(t, 1, meta.FileCount)
	assert.True(t, meta.IsSingleFile)
	assert.Equal(t, []string{"http://tracker.example.com/announce"}, meta.AnnounceURLs)
	assert.Equal(t, "test descriptor", meta.Comment)
	assert.Len(t, meta.InfoHash, 40, "hex sha1")
	assert.Len(t, meta.FileHash, 64, "hex sha256")
}

func TestValidate_MultiFile(t *testing.T) {
	v := NewTorrentValidator([]string{".torrent"})
	data := multiFileTorrent(t)

	meta, err := v.Validate("album.torrent", int64(len(data)), testLimitBytes, data)
	assert.NoError(t, err)

	assert.Equal(t, "album", meta.Name)
	assert.Equal(t, 3, meta.PieceCount)
	assert.Equal(t, int64(3500), meta.TotalSize, "total size is the sum of per-file lengths")
	assert.Equal(t, 2, meta.FileCount)
	assert.False(t, meta.IsSingleFile)
	assert.Equal(t, "disc1/track01.flac", meta.Files[0].Path)
	assert.Equal(t, []string{
		"http://tracker.example.com/announce",
		"udp://backup.example.org/announce",
	}, meta.AnnounceURLs, "announce list is flattened and deduplicated")
}

func TestValidate_OversizeRejectedBeforeParsing(t *testing.T) {
	v := NewTorrentValidator([]string{".torrent"})

	// The content is garbage: if the size check did not come first, the
	// reject reason would be a bencode error instead.
	garbage := []byte("definitely not bencode")
	declared := int64(100 * 1024 * 1024)

	_, err := v.Validate("big.torrent", declared, testLimitBytes, garbage)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "file too large")
}

func TestValidate_Rejections(t *testing.T) {
	v := NewTorrentValidator([]string{".torrent"})
	valid := singleFileTorrent(t)

	tests := []struct {
		name       string
		fileName   string
		data       []byte
		wantReason string
	}{
		{
			name:       "Wrong Extension",
			fileName:   "ubuntu.iso",
			data:       valid,
			wantReason: "invalid file type",
		},
		{
			name:       "Not Bencode",
			fileName:   "bad.torrent",
			data:       []byte("hello world"),
			wantReason: "invalid bencode format",
		},
		{
			name:       "Truncated Descriptor",
			fileName:   "cut.torrent",
			data:       valid[:len(valid)-10],
			wantReason: "invalid bencode format",
		},
		{
			name:     "Missing Info Section",
			fileName: "noinfo.torrent",
			data: encodeTorrent(t, map[string]interface{}{
				"announce": "http://tracker.example.com/announce",
			}),
			wantReason: "missing 'info' section",
		},
		{
			name:     "Missing Announce",
			fileName: "noannounce.torrent",
			data: encodeTorrent(t, map[string]interface{}{
				"info": map[string]interface{}{
					"name":         "file",
					"piece length": 16384,
					"pieces":       strings.Repeat("x", 20),
					"length":       1,
				},
			}),
			wantReason: "missing 'announce' field",
		},
		{
			name:     "Malformed Piece Hashes",
			fileName: "pieces.torrent",
			data: encodeTorrent(t, map[string]interface{}{
				"announce": "http://tracker.example.com/announce",
				"info": map[string]interface{}{
					"name":         "file",
					"piece length": 16384,
					"pieces":       strings.Repeat("x", 21),
					"length":       1,
				},
			}),
			wantReason: "malformed piece hashes",
		},
		{
			name:       "Empty File",
			fileName:   "empty.torrent",
			data:       nil,
			wantReason: "invalid bencode format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.fileName, int64(len(tt.data)), testLimitBytes, tt.data)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr, "malformed input must fail as a validation error, not a fault")
			assert.Contains(t, vErr.Reason, tt.wantReason)
		})
	}
}

func TestValidate_MetadataRoundTrip(t *testing.T) {
	v := NewTorrentValidator([]string{".torrent"})
	data := multiFileTorrent(t)

	meta, err := v.Validate("album.torrent", int64(len(data)), testLimitBytes, data)
	assert.NoError(t, err)

	blob, err := json.Marshal(meta)
	assert.NoError(t, err)

	var decoded TorrentMeta
	assert.NoError(t, json.Unmarshal(blob, &decoded))

	assert.Equal(t, meta.Name, decoded.Name)
	assert.Equal(t, meta.TotalSize, decoded.TotalSize)
	assert.Equal(t, meta.PieceCount, decoded.PieceCount)
	assert.Equal(t, meta.InfoHash, decoded.InfoHash)
	assert.Equal(t, meta.Files, decoded.Files)
	assert.Equal(t, meta.AnnounceURLs, decoded.AnnounceURLs)
}

func TestPrecheck_CustomExtensions(t *testing.T) {
	v := NewTorrentValidator([]string{".torrent", ".tor"})

	assert.NoError(t, v.Precheck("a.torrent", 1, testLimitBytes))
	assert.NoError(t, v.Precheck("A.TOR", 1, testLimitBytes))

	err := v.Precheck("a.txt", 1, testLimitBytes)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 B", formatFileSize(0))
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.00 KB", formatFileSize(1024))
	assert.Equal(t, "10.00 MB", formatFileSize(10*1024*1024))
	assert.Equal(t, "1.50 GB", formatFileSize(3*512*1024*1024))
}
