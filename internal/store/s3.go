package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"shuttle-go/internal/config"
	"shuttle-go/internal/shuttle"
)

// S3Store is a DeviceStore over an S3 bucket. The slash-delimited key
// hierarchy maps onto folders: a folder is any common prefix under the
// configured base prefix, and files are the objects inside it.
//
//	s3://<bucket>/<prefix>/
//	  exports/
//	    photos/
//	      img_0470.jpg   -> store path "exports/photos/img_0470.jpg"
type S3Store struct {
	name     string
	bucket   string
	prefix   string // "" or slash-terminated
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Store creates a store over the configured bucket. Credentials come
// from the default AWS chain unless static keys are configured.
func NewS3Store(cfg config.DeviceConfig) (*S3Store, error) {
	ctx := context.Background()

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3Store{
		name:     cfg.Name,
		bucket:   cfg.S3Bucket,
		prefix:   normalizePrefix(cfg.S3Prefix),
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// normalizePrefix strips surrounding slashes and reappends a single
// terminator, so key building is plain concatenation.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// Name identifies the store in configs and logs.
func (s *S3Store) Name() string { return s.name }

// objectKey maps a store file path to its object key.
func (s *S3Store) objectKey(storePath string) string {
	return s.prefix + storePath
}

// folderKey maps a store folder path to its key prefix.
func (s *S3Store) folderKey(storePath string) string {
	if storePath == "" {
		return s.prefix
	}
	return s.prefix + storePath + "/"
}

// TopFolders returns the common prefixes directly under the base prefix.
func (s *S3Store) TopFolders() ([]string, error) {
	folders, _, err := s.listFolder("")
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// Root returns the handle the top-level folders hang off.
func (s *S3Store) Root() (shuttle.FolderHandle, error) {
	return &s3Folder{store: s, path: ""}, nil
}

// CreateFolder writes a zero-byte marker object so the folder shows up in
// delimiter listings even while empty.
func (s *S3Store) CreateFolder(parent shuttle.FolderHandle, name string) (shuttle.FolderHandle, error) {
	ph, err := s.ownHandle(parent)
	if err != nil {
		return nil, err
	}

	childPath := path.Join(ph.path, name)
	_, err = s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.folderKey(childPath)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("creating folder marker %s: %w", childPath, err)
	}
	return &s3Folder{store: s, path: childPath}, nil
}

// Open streams the named object.
func (s *S3Store) Open(folder shuttle.FolderHandle, name string) (io.ReadCloser, error) {
	fh, err := s.ownHandle(folder)
	if err != nil {
		return nil, err
	}

	key := s.objectKey(path.Join(fh.path, name))
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting object %s: %w", key, err)
	}
	return out.Body, nil
}

// Put uploads r as a new object via the multipart upload manager.
func (s *S3Store) Put(folder shuttle.FolderHandle, name string, r io.Reader, size int64) error {
	fh, err := s.ownHandle(folder)
	if err != nil {
		return err
	}

	storePath := path.Join(fh.path, name)
	existing, err := fh.ResolveChild(name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("file already exists: %s", storePath)
	}

	_, err = s.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(storePath)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", storePath, err)
	}
	return nil
}

// Remove deletes the object at the given store path. S3 deletes are
// idempotent, so an already-gone object is not an error.
func (s *S3Store) Remove(storePath string) error {
	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(storePath)),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", storePath, err)
	}
	return nil
}

// listFolder returns the direct subfolder names and file entries of a
// folder, using delimiter listings so only one level comes back.
func (s *S3Store) listFolder(folderPath string) ([]string, []*s3Item, error) {
	dirKey := s.folderKey(folderPath)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(dirKey),
		Delimiter: aws.String("/"),
	})

	var folders []string
	var files []*s3Item
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, nil, fmt.Errorf("listing %s: %w", dirKey, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), dirKey), "/")
			if name != "" {
				folders = append(folders, name)
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), dirKey)
			if name == "" {
				// The folder's own marker object.
				continue
			}
			files = append(files, &s3Item{name: name, size: aws.ToInt64(obj.Size)})
		}
	}

	sort.Strings(folders)
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return folders, files, nil
}

// ownHandle verifies a handle was produced by this store.
func (s *S3Store) ownHandle(h shuttle.FolderHandle) (*s3Folder, error) {
	fh, ok := h.(*s3Folder)
	if !ok || fh.store != s {
		return nil, fmt.Errorf("folder handle does not belong to store %q", s.name)
	}
	return fh, nil
}

// s3Folder is a FolderHandle over a key prefix.
type s3Folder struct {
	store *S3Store
	path  string // store path, "" for the root
}

func (f *s3Folder) Name() string {
	if f.path == "" {
		return f.store.name
	}
	return path.Base(f.path)
}

func (f *s3Folder) IsFolder() bool { return true }
func (f *s3Folder) Size() int64    { return 0 }
func (f *s3Folder) Path() string   { return f.path }

// ResolveChild heads the exact object first, then probes for a prefix with
// content. Neither hit means the child does not exist.
func (f *s3Folder) ResolveChild(name string) (shuttle.ItemHandle, error) {
	childPath := path.Join(f.path, name)
	key := f.store.objectKey(childPath)
	ctx := context.Background()

	head, err := f.store.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.store.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return &s3Item{name: name, size: aws.ToInt64(head.ContentLength)}, nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return nil, fmt.Errorf("heading object %s: %w", key, err)
	}

	out, err := f.store.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(f.store.bucket),
		Prefix:  aws.String(f.store.folderKey(childPath)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("probing folder %s: %w", childPath, err)
	}
	if len(out.Contents) > 0 {
		return &s3Folder{store: f.store, path: childPath}, nil
	}
	return nil, nil
}

func (f *s3Folder) Children() ([]shuttle.ItemHandle, error) {
	folders, files, err := f.store.listFolder(f.path)
	if err != nil {
		return nil, err
	}

	items := make([]shuttle.ItemHandle, 0, len(folders)+len(files))
	for _, name := range folders {
		items = append(items, &s3Folder{store: f.store, path: path.Join(f.path, name)})
	}
	for _, file := range files {
		items = append(items, file)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })
	return items, nil
}

// s3Item is an ItemHandle for an object.
type s3Item struct {
	name string
	size int64
}

func (i *s3Item) Name() string   { return i.name }
func (i *s3Item) IsFolder() bool { return false }
func (i *s3Item) Size() int64    { return i.size }

// Compile-time checks against the shuttle interfaces
var (
	_ shuttle.DeviceStore  = (*S3Store)(nil)
	_ shuttle.FolderHandle = (*s3Folder)(nil)
	_ shuttle.ItemHandle   = (*s3Item)(nil)
)
