package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests returns a Store backed by an in-memory fake S3 endpoint.
// It answers the Head/Get/Put/Delete/ListObjectsV2 calls the store makes.
func NewMockForTests(cfg Config) *Store {
	rt := &mockRoundTripper{objects: make(map[string]mockObject)}
	awsCfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	if cfg.Bucket == "" {
		cfg.Bucket = "mock-bucket"
	}
	return newStore(client, cfg)
}

type mockObject struct {
	body         []byte
	contentType  string
	cacheControl string
	metadata     map[string]string
}

type mockRoundTripper struct {
	mu      sync.Mutex
	objects map[string]mockObject
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(req.URL.Query().Get("prefix")), nil
	}
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		obj, ok := m.objects[key]
		if !ok {
			if req.Method == http.MethodHead {
				return respond(http.StatusNotFound, nil, nil), nil
			}
			return respond(http.StatusNotFound, http.Header{"Content-Type": {"application/xml"}},
				[]byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)), nil
		}
		h := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"ETag":           {`"etag-` + strconv.Itoa(len(obj.body)) + `"`},
			"Last-Modified":  {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}
		if obj.cacheControl != "" {
			h.Set("Cache-Control", obj.cacheControl)
		}
		for k, v := range obj.metadata {
			h.Set("X-Amz-Meta-"+k, v)
		}
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, h, nil), nil
		}
		return respond(http.StatusOK, h, obj.body), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		md := make(map[string]string)
		for k, v := range req.Header {
			if name, ok := strings.CutPrefix(strings.ToLower(k), "x-amz-meta-"); ok && len(v) > 0 {
				md[name] = v[0]
			}
		}
		m.objects[key] = mockObject{
			body:         body,
			contentType:  req.Header.Get("Content-Type"),
			cacheControl: req.Header.Get("Cache-Control"),
			metadata:     md,
		}
		return respond(http.StatusOK, http.Header{"ETag": {`"etag"`}}, nil), nil
	case http.MethodDelete:
		delete(m.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

func (m *mockRoundTripper) list(prefix string) *http.Response {
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(m.objects[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, http.Header{"Content-Type": {"application/xml"}}, []byte(b.String()))
}

func respond(status int, h http.Header, body []byte) *http.Response {
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: h, Body: io.NopCloser(bytes.NewReader(body)), ContentLength: int64(len(body))}
}

// decodeChunked unwraps a single-chunk aws-chunked payload:
// <hex>[;chunk-signature=...]\r\n<body>\r\n0...
func decodeChunked(b []byte) ([]byte, bool) {
	head, rest, ok := bytes.Cut(b, []byte("\r\n"))
	if !ok {
		return nil, false
	}
	sizeHex, _, _ := bytes.Cut(head, []byte(";"))
	size, err := strconv.ParseInt(string(sizeHex), 16, 64)
	if err != nil || size < 0 || int64(len(rest)) < size+2 {
		return nil, false
	}
	if !bytes.HasPrefix(rest[size:], []byte("\r\n0")) {
		return nil, false
	}
	return rest[:size], true
}
