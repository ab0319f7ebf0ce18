package swipe

import (
	"google.golang.org/grpc"

	"github.com/oggyb/ravematch/internal/app"
)

// Registrar ties the Swipe service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Swipe service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Swipe service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	RegisterSwipeServer(s, NewSwipeService(r.appCtx))
}
