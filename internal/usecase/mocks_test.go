package usecase

import (
	"context"

	"resume-pdf-export/internal/domain"

	"github.com/stretchr/testify/mock"
)

type mockLauncher struct{ mock.Mock }

func (m *mockLauncher) Launch(ctx context.Context, job *domain.RenderJob) (Browser, error) {
	args := m.Called(ctx, job)
	b, _ := args.Get(0).(Browser)
	return b, args.Error(1)
}

type mockBrowser struct{ mock.Mock }

func (m *mockBrowser) OpenPage(ctx context.Context, opts PageOptions) (Page, error) {
	args := m.Called(ctx, opts)
	p, _ := args.Get(0).(Page)
	return p, args.Error(1)
}

func (m *mockBrowser) Connected() bool { return m.Called().Bool(0) }

func (m *mockBrowser) Close(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockBrowser) Release() { m.Called() }

type mockPage struct{ mock.Mock }

func (m *mockPage) Navigate(ctx context.Context, url string) (Response, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(Response), args.Error(1)
}

func (m *mockPage) WaitVisible(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *mockPage) WaitAttribute(ctx context.Context, attr, value string) error {
	return m.Called(ctx, attr, value).Error(0)
}

func (m *mockPage) BodySnapshot(ctx context.Context, limit int) (string, error) {
	args := m.Called(ctx, limit)
	return args.String(0), args.Error(1)
}

func (m *mockPage) PrintPDF(ctx context.Context, opts domain.PrintOptions) ([]byte, error) {
	args := m.Called(ctx, opts)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}
