package backend

import (
	"context"
	"fmt"

	"PersonalQT/internal/domain/models"
	xhttp "PersonalQT/pkg/http"

	"github.com/google/uuid"
)

func init() {
	xhttp.RegisterCustomTypeFunc(models.ValidationValue, models.Date{}, models.Timestamp{})
}

// Resource is typed CRUD access to one backend collection. T is the record,
// C the create payload, U the update payload.
type Resource[T, C, U any] struct {
	client *xhttp.Client
	path   string
}

// NewResource binds a collection endpoint such as "/categories/".
func NewResource[T, C, U any](client *xhttp.Client, path string) *Resource[T, C, U] {
	return &Resource[T, C, U]{client: client, path: path}
}

// Path is the collection endpoint.
func (r *Resource[T, C, U]) Path() string { return r.path }

// List reads one page. Zero params fall back to skip=0, limit=100.
func (r *Resource[T, C, U]) List(ctx context.Context, p models.ListParams) ([]T, error) {
	return r.list(ctx, r.path, checked(&p, func(o *xhttp.RequestOptions) {
		o.QueryParams = p.Values()
	}))
}

// Get reads one record.
func (r *Resource[T, C, U]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	var out T
	err := r.client.Get(ctx, r.item(id), nil, &out)
	return out, err
}

// Create validates in and posts it.
func (r *Resource[T, C, U]) Create(ctx context.Context, in C) (T, error) {
	var out T
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:   xhttp.MethodPost,
		URL:      r.path,
		Body:     &in,
		Validate: checked(&in, nil),
	}, &out)
	return out, err
}

// Update validates in and puts it.
func (r *Resource[T, C, U]) Update(ctx context.Context, id uuid.UUID, in U) (T, error) {
	var out T
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:   xhttp.MethodPut,
		URL:      r.item(id),
		Body:     &in,
		Validate: checked(&in, nil),
	}, &out)
	return out, err
}

// Delete removes one record.
func (r *Resource[T, C, U]) Delete(ctx context.Context, id uuid.UUID) error {
	return r.client.Delete(ctx, r.item(id), nil)
}

func (r *Resource[T, C, U]) list(ctx context.Context, path string, validate func(context.Context, *xhttp.RequestOptions) error) ([]T, error) {
	var out []T
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:   xhttp.MethodGet,
		URL:      path,
		Validate: validate,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (r *Resource[T, C, U]) item(id uuid.UUID) string {
	return r.path + id.String()
}

// checked validates v inside the client, so a failure goes through the
// response interceptors like any other request error. fill runs after v has
// its defaults.
func checked(v interface{}, fill func(*xhttp.RequestOptions)) func(context.Context, *xhttp.RequestOptions) error {
	return func(ctx context.Context, o *xhttp.RequestOptions) error {
		if err := xhttp.ValidateStruct(ctx, v); err != nil {
			return fmt.Errorf("invalid %T: %w", v, err)
		}
		if fill != nil {
			fill(o)
		}
		return nil
	}
}
