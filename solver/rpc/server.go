package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	accountquery "github.com/Cogwheel-Validator/spectra-svm-solver/solver/account_query"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/models"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers"
	v1 "github.com/Cogwheel-Validator/spectra-svm-solver/solver/rpc/v1"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

// ServiceName is the Connect service the solver is mounted under.
const ServiceName = v1.SolverServiceName

// Procedure paths of ServiceName.
const (
	QuoteProcedure         = v1.SolverServiceQuoteProcedure
	ComposeSwapProcedure   = v1.SolverServiceComposeSwapProcedure
	DeriveAddressProcedure = v1.SolverServiceDeriveAddressProcedure
	ListPoolsProcedure     = v1.SolverServiceListPoolsProcedure
)

// SolverServer exposes router.Solver over Connect.
type SolverServer struct {
	solver *router.Solver
}

// NewSolverServer creates a new SolverServer
func NewSolverServer(solver *router.Solver) *SolverServer {
	return &SolverServer{solver: solver}
}

func (s *SolverServer) register(mux chi.Router, opts ...connect.HandlerOption) {
	mux.Handle(QuoteProcedure, unaryHandler(QuoteProcedure, s.Quote, opts...))
	mux.Handle(ComposeSwapProcedure, unaryHandler(ComposeSwapProcedure, s.ComposeSwap, opts...))
	mux.Handle(DeriveAddressProcedure, unaryHandler(DeriveAddressProcedure, s.DeriveAddress, opts...))
	mux.Handle(ListPoolsProcedure, unaryHandler(ListPoolsProcedure, s.ListPools, opts...))
}

// unaryHandler serves a schema method with a typed call. Requests and responses are
// dynamic messages of the method's input and output, converted through proto JSON.
func unaryHandler[Req, Res any](
	procedure string,
	call func(context.Context, *Req) (*Res, error),
	opts ...connect.HandlerOption,
) http.Handler {
	method := v1.Method(procedure)
	opts = append([]connect.HandlerOption{
		connect.WithSchema(method),
		connect.WithRequestInitializer(initRequest),
	}, opts...)

	return connect.NewUnaryHandler(procedure, func(
		ctx context.Context,
		req *connect.Request[dynamicpb.Message],
	) (*connect.Response[dynamicpb.Message], error) {
		in := new(Req)
		if err := v1.ToJSON(req.Msg, in); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		out, err := call(ctx, in)
		if err != nil {
			return nil, toConnectError(err)
		}
		msg, err := v1.FromJSON(method.Output(), out)
		if err != nil {
			Logger.Error().Err(err).Str("procedure", procedure).Msg("Failed to encode response")
			return nil, connect.NewError(connect.CodeInternal, errors.New("internal error"))
		}
		return connect.NewResponse(msg), nil
	}, opts...)
}

// initRequest sizes the empty request message to the method's input type.
func initRequest(spec connect.Spec, msg any) error {
	dynamic, ok := msg.(*dynamicpb.Message)
	if !ok {
		return fmt.Errorf("unexpected request type %T", msg)
	}
	method, ok := spec.Schema.(protoreflect.MethodDescriptor)
	if !ok {
		return fmt.Errorf("no schema for %s", spec.Procedure)
	}
	*dynamic = *v1.NewMessage(method.Input())
	return nil
}

// Quote returns the expected output of a swap at current reserves.
func (s *SolverServer) Quote(ctx context.Context, req *models.QuoteRequest) (*models.QuoteResponse, error) {
	return s.solver.Quote(ctx, req)
}

// ComposeSwap compiles a swap intent into a host envelope and attaches its binary
// encoding.
func (s *SolverServer) ComposeSwap(ctx context.Context, req *models.ComposeSwapRequest) (*models.ComposeSwapResponse, error) {
	resp, err := s.solver.ComposeSwap(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.MessageWire, err = v1.MarshalMsgTransaction(resp.Message); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	dex := req.Dex
	if dex == "" {
		dex = string(brokers.DexRaydium)
	}
	composedSwaps.WithLabelValues(dex, req.PoolName).Inc()
	return resp, nil
}

// DeriveAddress resolves wallet, associated token and program derived addresses.
func (s *SolverServer) DeriveAddress(ctx context.Context, req *models.DeriveAddressRequest) (*models.DeriveAddressResponse, error) {
	return s.solver.DeriveAddress(ctx, req)
}

// ListPools lists the registered pools of a DEX.
func (s *SolverServer) ListPools(_ context.Context, req *models.ListPoolsRequest) (*models.PoolsResponse, error) {
	return s.solver.ListPools(req)
}

// toConnectError maps solver errors onto Connect codes. Unknown errors are reported as
// internal without their message.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, brokers.ErrNotFound),
		errors.Is(err, accountquery.ErrAccountNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, brokers.ErrInvalidAmount),
		errors.Is(err, brokers.ErrUnsupportedDex),
		errors.Is(err, svm.ErrAddressFormat),
		errors.Is(err, svm.ErrDecode),
		errors.Is(err, svm.ErrMaxSeedLengthExceeded):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, brokers.ErrEmptyPool),
		errors.Is(err, svm.ErrDerivationExhausted):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		Logger.Error().Err(err).Msg("Solver request failed")
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}
