package storage

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

var sseAlgorithm = "AES256"

// S3 is a Store backed by AWS S3.
type S3 struct {
	s3     *s3.S3
	bucket string
	prefix string
}

// NewS3 returns a Store that reads and writes objects under the given bucket
// and path prefix.
func NewS3(awsSession *session.Session, bucket, prefix string) *S3 {
	// Make sure the path prefix starts and ends with /
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return &S3{
		s3:     s3.New(awsSession),
		bucket: bucket,
		prefix: prefix,
	}
}

// IDFromName returns a deterministic ID for a name.
func (s *S3) IDFromName(name string) string {
	return fmt.Sprintf("s3://%s/%s%s%s", *s.s3.Config.Region, s.bucket, s.prefix, name)
}

func (s *S3) Put(name string, data []byte, contentType string, meta map[string]string) (string, error) {
	return s.PutReader(name, bytes.NewReader(data), int64(len(data)), contentType, meta)
}

func (s *S3) PutReader(name string, r io.ReadSeeker, size int64, contentType string, meta map[string]string) (string, error) {
	var m map[string]*string
	if len(meta) != 0 {
		m = make(map[string]*string, len(meta))
		for k, v := range meta {
			v := v
			m[k] = &v
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	path := s.prefix + name
	_, err := s.s3.PutObject(&s3.PutObjectInput{
		Bucket:               &s.bucket,
		Key:                  &path,
		Body:                 r,
		ContentLength:        &size,
		ContentType:          &contentType,
		ServerSideEncryption: &sseAlgorithm,
		Metadata:             m,
	})
	if err != nil {
		return "", err
	}
	return s.IDFromName(name), nil
}

func (s *S3) Get(id string) ([]byte, http.Header, error) {
	r, headers, err := s.GetReader(id)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, r); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), headers, nil
}

func (s *S3) GetReader(id string) (io.ReadCloser, http.Header, error) {
	bkt, path, err := s.parseURI(id)
	if err != nil {
		return nil, nil, err
	}
	obj, err := s.s3.GetObject(&s3.GetObjectInput{
		Bucket: &bkt,
		Key:    &path,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrNoObject
		}
		return nil, nil, err
	}
	header := http.Header{}
	if obj.ContentType != nil {
		header.Set("Content-Type", *obj.ContentType)
	}
	if obj.ContentLength != nil {
		header.Set("Content-Length", strconv.FormatInt(*obj.ContentLength, 10))
	}
	for k, v := range obj.Metadata {
		if v != nil {
			header.Set(k, *v)
		}
	}
	return obj.Body, header, nil
}

func (s *S3) Head(id string) (*ObjectInfo, error) {
	bkt, path, err := s.parseURI(id)
	if err != nil {
		return nil, err
	}
	obj, err := s.s3.HeadObject(&s3.HeadObjectInput{
		Bucket: &bkt,
		Key:    &path,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoObject
		}
		return nil, err
	}
	info := &ObjectInfo{}
	if obj.ContentLength != nil {
		info.Size = *obj.ContentLength
	}
	if obj.ContentType != nil {
		info.ContentType = *obj.ContentType
	}
	if obj.LastModified != nil {
		info.LastModified = *obj.LastModified
	}
	return info, nil
}

func (s *S3) Delete(id string) error {
	bkt, path, err := s.parseURI(id)
	if err != nil {
		return err
	}
	_, err = s.s3.DeleteObject(&s3.DeleteObjectInput{
		Bucket: &bkt,
		Key:    &path,
	})
	return err
}

func (s *S3) ExpiringURL(id string, expiration time.Duration) (string, error) {
	bkt, path, err := s.parseURI(id)
	if err != nil {
		return "", err
	}
	req, _ := s.s3.GetObjectRequest(&s3.GetObjectInput{
		Bucket: &bkt,
		Key:    &path,
	})
	return req.Presign(expiration)
}

func (s *S3) ExpiringPutURL(name, contentType string, expiration time.Duration) (string, string, error) {
	path := s.prefix + name
	in := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &path,
	}
	if contentType != "" {
		in.ContentType = &contentType
	}
	req, _ := s.s3.PutObjectRequest(in)
	u, err := req.Presign(expiration)
	if err != nil {
		return "", "", err
	}
	return u, s.IDFromName(name), nil
}

func (s *S3) parseURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}
	p := strings.SplitN(u.Path, "/", 3)
	if len(p) < 3 {
		return "", "", fmt.Errorf("storage: bad S3 path %s", u.Path)
	}
	return p[1], "/" + p[2], nil
}

func isNotFound(err error) bool {
	if ae, ok := err.(awserr.RequestFailure); ok {
		return ae.StatusCode() == http.StatusNotFound
	}
	if ae, ok := err.(awserr.Error); ok {
		return ae.Code() == s3.ErrCodeNoSuchKey || ae.Code() == "NotFound"
	}
	return false
}
