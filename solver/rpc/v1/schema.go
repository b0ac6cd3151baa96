// Package v1 holds the solver's protobuf schema. The .proto sources are embedded and
// compiled when the package loads, then registered with the global registry the way
// generated code registers its descriptors.
package v1

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"path"

	// registers buf/validate/validate.proto and its rule extensions
	_ "buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

const (
	// SolverServiceName is the fully-qualified name of the SolverService service.
	SolverServiceName = "solver.v1.SolverService"

	TxFile     = "svm/v1/tx.proto"
	SolverFile = "solver/v1/solver.proto"
)

// Procedure paths of SolverService.
const (
	SolverServiceQuoteProcedure         = "/" + SolverServiceName + "/Quote"
	SolverServiceComposeSwapProcedure   = "/" + SolverServiceName + "/ComposeSwap"
	SolverServiceDeriveAddressProcedure = "/" + SolverServiceName + "/DeriveAddress"
	SolverServiceListPoolsProcedure     = "/" + SolverServiceName + "/ListPools"
)

//go:embed proto/svm/v1/*.proto proto/solver/v1/*.proto
var sources embed.FS

var (
	File_svm_v1_tx_proto        protoreflect.FileDescriptor
	File_solver_v1_solver_proto protoreflect.FileDescriptor

	solverService protoreflect.ServiceDescriptor
	msgTxDesc     protoreflect.MessageDescriptor
)

func init() {
	files, err := compile(context.Background(), TxFile, SolverFile)
	if err != nil {
		panic(fmt.Sprintf("solver schema: %v", err))
	}
	File_svm_v1_tx_proto = files[0]
	File_solver_v1_solver_proto = files[1]
	solverService = File_solver_v1_solver_proto.Services().ByName("SolverService")
	msgTxDesc = File_svm_v1_tx_proto.Messages().ByName("MsgTransaction")
}

// compile parses the embedded sources and registers the resulting files in import
// order. Imports outside the embedded tree resolve from protoregistry.GlobalFiles.
func compile(ctx context.Context, names ...string) ([]protoreflect.FileDescriptor, error) {
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(protocompile.CompositeResolver{
			&protocompile.SourceResolver{
				Accessor: func(name string) (io.ReadCloser, error) {
					return sources.Open(path.Join("proto", name))
				},
			},
			protocompile.ResolverFunc(func(name string) (protocompile.SearchResult, error) {
				fd, err := protoregistry.GlobalFiles.FindFileByPath(name)
				if err != nil {
					return protocompile.SearchResult{}, err
				}
				return protocompile.SearchResult{Desc: fd}, nil
			}),
		}),
	}
	compiled, err := compiler.Compile(ctx, names...)
	if err != nil {
		return nil, err
	}

	out := make([]protoreflect.FileDescriptor, 0, len(names))
	for _, name := range names {
		fd, err := register(compiled.FindFileByPath(name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, fd)
	}
	return out, nil
}

// register rebuilds a compiled file against the global registries so custom options,
// the buf.validate rules among them, are typed extensions rather than unknown fields.
func register(compiled protoreflect.FileDescriptor) (protoreflect.FileDescriptor, error) {
	bz, err := proto.Marshal(protodesc.ToFileDescriptorProto(compiled))
	if err != nil {
		return nil, err
	}
	fdp := new(descriptorpb.FileDescriptorProto)
	if err := (proto.UnmarshalOptions{Resolver: protoregistry.GlobalTypes}).Unmarshal(bz, fdp); err != nil {
		return nil, err
	}
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		return nil, err
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		return nil, err
	}
	return fd, nil
}

// Method returns the SolverService method served at procedure, or nil.
func Method(procedure string) protoreflect.MethodDescriptor {
	name := protoreflect.Name(path.Base(procedure))
	return solverService.Methods().ByName(name)
}

// NewMessage returns an empty message of the given descriptor.
func NewMessage(desc protoreflect.MessageDescriptor) *dynamicpb.Message {
	return dynamicpb.NewMessage(desc)
}

// FromJSON fills a message of desc from the JSON encoding of v. Field names follow the
// schema's snake_case names.
func FromJSON(desc protoreflect.MessageDescriptor, v any) (*dynamicpb.Message, error) {
	bz, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	msg := dynamicpb.NewMessage(desc)
	if err := protojson.Unmarshal(bz, msg); err != nil {
		return nil, fmt.Errorf("%s: %w", desc.FullName(), err)
	}
	return msg, nil
}

// ToJSON decodes msg into v through its proto JSON form.
func ToJSON(msg proto.Message, v any) error {
	bz, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(msg)
	if err != nil {
		return err
	}
	return json.Unmarshal(bz, v)
}

// MarshalMsgTransaction encodes msg as a svm.v1.MsgTransaction.
func MarshalMsgTransaction(msg *svm.MsgTransaction) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("message is required")
	}
	m, err := FromJSON(msgTxDesc, msg)
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(m)
}
