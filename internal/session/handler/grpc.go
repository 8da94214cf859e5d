// Package handler exposes session administration over gRPC. Messages are plain structs carried
// by the JSON codec registered in internal/server.
package handler

import (
	"context"
	"errors"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Badrul886/riverside/internal/session/domain"
	sessionservice "github.com/Badrul886/riverside/internal/session/service"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "riverside.session.v1.SessionAdmin"

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ListSessionsRequest selects a user's sessions. PageToken is the offset returned by the previous page.
type ListSessionsRequest struct {
	UserID    string `json:"userId"`
	PageSize  int32  `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

type ListSessionsResponse struct {
	Sessions      []domain.SessionSummary `json:"sessions"`
	NextPageToken string                  `json:"nextPageToken,omitempty"`
}

type RevokeAllSessionsRequest struct {
	UserID string `json:"userId"`
}

type RevokeAllSessionsResponse struct {
	Revoked int64 `json:"revoked"`
}

// SessionAdminServer is the server API for SessionAdmin.
type SessionAdminServer interface {
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	RevokeAllSessions(context.Context, *RevokeAllSessionsRequest) (*RevokeAllSessionsResponse, error)
}

// SessionService is the part of the session manager the admin API uses.
type SessionService interface {
	ListSessions(ctx context.Context, userID string) ([]domain.SessionSummary, error)
	InvalidateAll(ctx context.Context, userID string) (int64, error)
}

// Server implements SessionAdminServer. Authorization (admin role) is enforced by the auth interceptor.
type Server struct {
	sessions SessionService
}

// NewServer returns a Server. If sessions is nil, all RPCs return Unimplemented.
func NewServer(sessions SessionService) *Server {
	return &Server{sessions: sessions}
}

// ListSessions returns one page of the user's sessions in creation order.
func (s *Server) ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error) {
	if s.sessions == nil {
		return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
	}
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := 0
	if req.PageToken != "" {
		if n, err := strconv.Atoi(req.PageToken); err == nil && n >= 0 {
			offset = n
		}
	}
	list, err := s.sessions.ListSessions(ctx, req.UserID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to list sessions")
	}
	if offset > len(list) {
		offset = len(list)
	}
	end := min(offset+int(pageSize), len(list))
	resp := &ListSessionsResponse{Sessions: list[offset:end]}
	if end < len(list) {
		resp.NextPageToken = strconv.Itoa(end)
	}
	return resp, nil
}

// RevokeAllSessions revokes every live session of the user.
func (s *Server) RevokeAllSessions(ctx context.Context, req *RevokeAllSessionsRequest) (*RevokeAllSessionsResponse, error) {
	if s.sessions == nil {
		return nil, status.Error(codes.Unimplemented, "method RevokeAllSessions not implemented")
	}
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	n, err := s.sessions.InvalidateAll(ctx, req.UserID)
	if errors.Is(err, sessionservice.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to revoke sessions")
	}
	return &RevokeAllSessionsResponse{Revoked: n}, nil
}

// RegisterSessionAdminServer registers srv on s.
func RegisterSessionAdminServer(s grpc.ServiceRegistrar, srv SessionAdminServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes SessionAdmin for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSessions", Handler: listSessionsHandler},
		{MethodName: "RevokeAllSessions", Handler: revokeAllSessionsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "riverside/session/v1/admin",
}

func listSessionsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionAdminServer).ListSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListSessions"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionAdminServer).ListSessions(ctx, req.(*ListSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func revokeAllSessionsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RevokeAllSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionAdminServer).RevokeAllSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/RevokeAllSessions"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionAdminServer).RevokeAllSessions(ctx, req.(*RevokeAllSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}
