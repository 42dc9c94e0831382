package frontdeskService

import (
	"fmt"
	"frontdesk/internal/entity"
	"frontdesk/pkg/s3"
	"frontdesk/pkg/utils"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
	"strings"
	"time"
	"unicode"
)

// ITranscriptArchive stores the transcript of a closed call.
type ITranscriptArchive interface {
	Archive(ctx context.Context, conv entity.Conversation) (string, error)
}

type s3TranscriptArchive struct {
	s3    s3.ItfS3
	utils utils.IUtils
}

func NewTranscriptArchive(s3Client s3.ItfS3, utils utils.IUtils) ITranscriptArchive {
	return &s3TranscriptArchive{
		s3:    s3Client,
		utils: utils,
	}
}

func (a *s3TranscriptArchive) Archive(ctx context.Context, conv entity.Conversation) (string, error) {
	body, err := jsoniter.MarshalIndent(conv, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}

	suffix, err := a.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return "", err
	}

	return a.s3.PutObject(ctx, TranscriptKey(conv, suffix), body, "application/json")
}

// TranscriptKey is transcripts/<yyyy>/<mm>/<dd>/<session key>-<suffix>.json,
// dated by the call start in UTC.
func TranscriptKey(conv entity.Conversation, suffix string) string {
	safeKey := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, conv.SessionKey)

	return fmt.Sprintf("transcripts/%s/%s-%s.json", conv.StartedAt.UTC().Format("2006/01/02"), safeKey, suffix)
}
