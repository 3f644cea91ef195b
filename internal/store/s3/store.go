// Package s3 stores each board as one JSON object in an S3 bucket, keyed by
// owner and board id.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/inamate/whiteboard/internal/store"
)

// API is the subset of *s3.Client the store uses.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// object is the stored shape: board metadata plus the raw document.
type object struct {
	store.Board
	Document json.RawMessage `json:"document"`
}

type Store struct {
	client API
	bucket string
	now    func() time.Time
}

// Open builds a client from the default AWS configuration chain.
func Open(ctx context.Context, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket name is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(s3.NewFromConfig(cfg), bucket), nil
}

func New(client API, bucket string) *Store {
	return &Store{client: client, bucket: bucket, now: time.Now}
}

func (s *Store) CreateBoard(ctx context.Context, b store.Board, doc []byte) (*store.Board, error) {
	now := s.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	b.Revision = store.NewRevision()
	if err := s.put(ctx, object{Board: b, Document: doc}); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetBoard(ctx context.Context, ownerID, id string) (*store.Board, error) {
	obj, err := s.get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return &obj.Board, nil
}

func (s *Store) ListBoards(ctx context.Context, ownerID string) ([]store.Board, error) {
	boards := []store.Board{}
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(ownerID + "/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list boards for %s: %w", ownerID, err)
		}
		for _, o := range out.Contents {
			obj, err := s.read(ctx, aws.ToString(o.Key))
			if err != nil {
				slog.Warn("skip unreadable board object", "key", aws.ToString(o.Key), "error", err)
				continue
			}
			boards = append(boards, obj.Board)
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Slice(boards, func(i, j int) bool {
		return boards[i].UpdatedAt.After(boards[j].UpdatedAt)
	})
	return boards, nil
}

func (s *Store) DeleteBoard(ctx context.Context, ownerID, id string) error {
	// DeleteObject succeeds for missing keys, so check first.
	if _, err := s.get(ctx, ownerID, id); err != nil {
		return err
	}
	key, _ := objectKey(ownerID, id)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete board %s: %w", id, err)
	}
	return nil
}

func (s *Store) LoadDocument(ctx context.Context, ownerID, id string) ([]byte, error) {
	obj, err := s.get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return obj.Document, nil
}

func (s *Store) SaveDocument(ctx context.Context, ownerID, id string, doc []byte) error {
	obj, err := s.get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	obj.Document = doc
	obj.Revision = store.NewRevision()
	obj.UpdatedAt = s.now().UTC()
	return s.put(ctx, *obj)
}

func (s *Store) Close() error { return nil }

func (s *Store) get(ctx context.Context, ownerID, id string) (*object, error) {
	key, err := objectKey(ownerID, id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	return s.read(ctx, key)
}

func (s *Store) read(ctx context.Context, key string) (*object, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode object %s: %w", key, err)
	}
	return &obj, nil
}

func (s *Store) put(ctx context.Context, obj object) error {
	key, err := objectKey(obj.OwnerID, obj.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("encode board %s: %w", obj.ID, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put board %s: %w", obj.ID, err)
	}
	return nil
}

// objectKey rejects ids that would escape the owner's prefix.
func objectKey(ownerID, id string) (string, error) {
	for _, part := range []string{ownerID, id} {
		if part == "" || part == "." || part == ".." || path.Base(part) != part {
			return "", fmt.Errorf("invalid key component %q", part)
		}
	}
	return path.Join(ownerID, id+".json"), nil
}
