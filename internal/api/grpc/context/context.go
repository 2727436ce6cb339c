package context

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/dtroode/sessionguard/internal/model"
)

// Metadata keys carrying the authenticated identity.
const (
	subjectKey string = "x-identity-subject"
	roleKey    string = "x-identity-role"
)

var _ model.ContextManager = (*Manager)(nil)

// Manager stores the authenticated identity in incoming gRPC metadata.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetIdentityToContext overwrites any identity keys the caller sent.
func (m *Manager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}
	md.Set(subjectKey, identity.Subject)
	md.Set(roleKey, string(identity.Role))

	return metadata.NewIncomingContext(ctx, md)
}

// GetIdentityFromContext returns the identity set by SetIdentityToContext.
func (m *Manager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return model.Identity{}, false
	}

	subjects := md.Get(subjectKey)
	if len(subjects) == 0 || subjects[0] == "" {
		return model.Identity{}, false
	}

	identity := model.Identity{Subject: subjects[0]}
	if roles := md.Get(roleKey); len(roles) > 0 {
		identity.Role = model.Role(roles[0])
	}

	return identity, true
}
