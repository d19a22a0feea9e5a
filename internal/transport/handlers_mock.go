package transport

import (
	"context"
	"time"

	"github.com/UnendingLoop/TextWatermark/internal/model"
	"github.com/gin-gonic/gin"
)

type mockJobService struct {
	createFn      func(ctx context.Context, d *model.JobCreateData) (*model.Job, error)
	getFn         func(ctx context.Context, id string) (*model.Job, error)
	deleteFn      func(ctx context.Context, id string) error
	loadResultFn  func(ctx context.Context, id string) (*model.ImageFile, error)
	loadPreviewFn func(ctx context.Context, id string) (*model.ImageFile, error)
	getListFn     func(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	fonts         []string
	anchors       []string
}

func (m *mockJobService) Create(ctx context.Context, d *model.JobCreateData) (*model.Job, error) {
	return m.createFn(ctx, d)
}

func (m *mockJobService) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.getFn(ctx, id)
}

func (m *mockJobService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockJobService) LoadResult(ctx context.Context, id string) (*model.ImageFile, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockJobService) LoadPreview(ctx context.Context, id string) (*model.ImageFile, error) {
	return m.loadPreviewFn(ctx, id)
}

func (m *mockJobService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	return m.getListFn(ctx, req)
}

func (m *mockJobService) Fonts() []string {
	return m.fonts
}

func (m *mockJobService) Anchors() []string {
	return m.anchors
}

type observation struct {
	method, route string
	code          int
}

type mockObserver struct {
	seen []observation
}

func (m *mockObserver) ObserveRequest(method, route string, code int, d time.Duration) {
	m.seen = append(m.seen, observation{method: method, route: route, code: code})
}

func init() {
	gin.SetMode(gin.TestMode)
}
