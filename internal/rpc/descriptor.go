package rpc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// FileName is the path StatsService is registered under in the global
// protobuf registry, so server reflection can describe it.
const FileName = "dispatch/v1/stats.proto"

func init() {
	if err := registerFile(); err != nil {
		panic(fmt.Sprintf("rpc: registering %s: %v", FileName, err))
	}
}

// typeName returns the fully-qualified name protoc writes for m's type.
func typeName(m proto.Message) *string {
	return proto.String("." + string(m.ProtoReflect().Descriptor().FullName()))
}

// fileDescriptor describes the service the way protoc would for:
//
//	service StatsService {
//	  rpc GetJourneysStats(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc GetJourneyMessageStats(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc Health(google.protobuf.Empty) returns (google.protobuf.StringValue);
//	}
func fileDescriptor() *descriptorpb.FileDescriptorProto {
	st, empty, str := typeName(&structpb.Struct{}), typeName(&emptypb.Empty{}), typeName(&wrapperspb.StringValue{})
	method := func(name string, in, out *string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{Name: proto.String(name), InputType: in, OutputType: out}
	}
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(FileName),
		Package: proto.String("dispatch.v1"),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			structpb.File_google_protobuf_struct_proto.Path(),
			emptypb.File_google_protobuf_empty_proto.Path(),
			wrapperspb.File_google_protobuf_wrappers_proto.Path(),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("StatsService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("GetJourneysStats", st, st),
				method("GetJourneyMessageStats", st, st),
				method("Health", empty, str),
			},
		}},
	}
}

func registerFile() error {
	if _, err := protoregistry.GlobalFiles.FindFileByPath(FileName); err == nil {
		return nil
	}
	fd, err := protodesc.NewFile(fileDescriptor(), protoregistry.GlobalFiles)
	if err != nil {
		return err
	}
	return protoregistry.GlobalFiles.RegisterFile(fd)
}
