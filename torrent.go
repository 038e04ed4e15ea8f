package main

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeebo/bencode"
)

const pieceHashSize = 20 // SHA-1 per piece

// ValidationError is a reject of the uploaded file itself: oversize, wrong
// extension, or a descriptor that does not parse. It is reported to the
// user and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// TorrentMeta is the descriptive metadata extracted from an accepted
// descriptor. It is stored as the upload's JSON blob and rendered in
// replies; re-serializing it reproduces the same descriptive fields.
type TorrentMeta struct {
	Name         string            `json:"name"`
	InfoHash     string            `json:"info_hash"`
	FileHash     string            `json:"file_hash"`
	PieceLength  int64             `json:"piece_length"`
	PieceCount   int               `json:"piece_count"`
	TotalSize    int64             `json:"total_size"`
	FileCount    int               `json:"file_count"`
	IsSingleFile bool              `json:"is_single_file"`
	Files        []TorrentMetaFile `json:"files"`
	AnnounceURLs []string          `json:"announce_urls"`
	Comment      string            `json:"comment,omitempty"`
	CreatedBy    string            `json:"created_by,omitempty"`
	CreationDate int64             `json:"creation_date,omitempty"`
}

// TorrentMetaFile is one payload file named by the descriptor.
type TorrentMetaFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Wire shapes for the bencoded descriptor. Info stays raw so the info hash
// covers the exact bytes the uploader sent.
type torrentFile struct {
	Announce     string             `bencode:"announce"`
	AnnounceList [][]string         `bencode:"announce-list"`
	Comment      string             `bencode:"comment"`
	CreatedBy    string             `bencode:"created by"`
	CreationDate int64              `bencode:"creation date"`
	Info         bencode.RawMessage `bencode:"info"`
}

type torrentInfoDict struct {
	Name        string             `bencode:"name"`
	PieceLength int64              `bencode:"piece length"`
	Pieces      string             `bencode:"pieces"`
	Length      int64              `bencode:"length"`
	Files       []torrentInfoEntry `bencode:"files"`
}

type torrentInfoEntry struct {
	Length int64    `bencode:"length"`
	Path   []string `bencode:"path"`
}

// TorrentValidator checks an upload against the size ceiling, the allowed
// extension list and the bencode structure, and extracts metadata. It is
// stateless and safe for concurrent use.
type TorrentValidator struct {
	allowedExtensions []string
}

func NewTorrentValidator(allowedExtensions []string) *TorrentValidator {
	return &TorrentValidator{allowedExtensions: allowedExtensions}
}

// Precheck applies the cheap rejects that need no file content: the
// declared size against the effective limit, then the filename extension.
// The dispatcher runs it before downloading anything.
func (v *TorrentValidator) Precheck(fileName string, declaredSize, limitBytes int64) error {
	if declaredSize > limitBytes {
		return validationErrorf("file too large: %s exceeds the %s limit",
			formatFileSize(declaredSize), formatFileSize(limitBytes))
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	for _, allowed := range v.allowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return validationErrorf("invalid file type %q: only %s files are allowed",
		ext, strings.Join(v.allowedExtensions, ", "))
}

// Validate runs the full policy: size, extension, then a single decode
// pass over the descriptor. Size is checked against the declared size
// before any parsing happens. Malformed content yields a ValidationError,
// never a panic.
func (v *TorrentValidator) Validate(fileName string, declaredSize, limitBytes int64, data []byte) (*TorrentMeta, error) {
	if err := v.Precheck(fileName, declaredSize, limitBytes); err != nil {
		return nil, err
	}

	var tf torrentFile
	if err := bencode.DecodeBytes(data, &tf); err != nil {
		return nil, validationErrorf("invalid bencode format: %v", err)
	}
	if len(tf.Info) == 0 {
		return nil, validationErrorf("missing 'info' section")
	}
	if tf.Announce == "" && len(tf.AnnounceList) == 0 {
		return nil, validationErrorf("missing 'announce' field")
	}

	var info torrentInfoDict
	if err := bencode.DecodeBytes(tf.Info, &info); err != nil {
		return nil, validationErrorf("invalid 'info' section: %v", err)
	}
	if info.Name == "" {
		return nil, validationErrorf("missing torrent name")
	}
	if len(info.Pieces)%pieceHashSize != 0 {
		return nil, validationErrorf("malformed piece hashes")
	}

	meta := &TorrentMeta{
		Name:         info.Name,
		PieceLength:  info.PieceLength,
		PieceCount:   len(info.Pieces) / pieceHashSize,
		AnnounceURLs: collectAnnounceURLs(tf),
		Comment:      tf.Comment,
		CreatedBy:    tf.CreatedBy,
		CreationDate: tf.CreationDate,
	}

	if len(info.Files) > 0 {
		// Multi-file descriptor: total size is the sum of per-file lengths.
		for _, entry := range info.Files {
			meta.Files = append(meta.Files, TorrentMetaFile{
				Path: strings.Join(entry.Path, "/"),
				Size: entry.Length,
			})
			meta.TotalSize += entry.Length
		}
		meta.FileCount = len(info.Files)
	} else {
		meta.Files = []TorrentMetaFile{{Path: info.Name, Size: info.Length}}
		meta.FileCount = 1
		meta.TotalSize = info.Length
		meta.IsSingleFile = true
	}

	infoHash := sha1.Sum(tf.Info)
	meta.InfoHash = hex.EncodeToString(infoHash[:])

	fileHash := sha256.Sum256(data)
	meta.FileHash = hex.EncodeToString(fileHash[:])

	return meta, nil
}

func collectAnnounceURLs(tf torrentFile) []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	add(tf.Announce)
	for _, tier := range tf.AnnounceList {
		for _, u := range tier {
			add(u)
		}
	}
	return urls
}
