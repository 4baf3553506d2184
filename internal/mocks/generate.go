// Package mocks provides generated mock implementations of the auth ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	idp := mocks.NewMockIdentityProvider(ctrl)
//	idp.EXPECT().ResolveUser(gomock.Any(), "token").Return(nil, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/campus-admin/admingate/internal/ports IdentityProvider
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/campus-admin/admingate/internal/ports ProfileStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=login_limiter_mock.go github.com/campus-admin/admingate/internal/ports LoginLimiter
