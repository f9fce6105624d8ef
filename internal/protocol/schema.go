package protocol

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Version is the protocol version written by this client. Messages carrying a
// higher version are rejected.
const Version = 1

const protoFileName = "fsevents/v1/events.proto"

//go:embed events.proto
var eventsProto string

// Schema holds the compiled message descriptors of the wire protocol.
type Schema struct {
	File          protoreflect.FileDescriptor
	ServerMessage protoreflect.MessageDescriptor
	ClientMessage protoreflect.MessageDescriptor
}

// CompileSchema compiles the embedded protocol definition.
func CompileSchema(ctx context.Context) (*Schema, error) {
	resolver := &singleFileResolver{
		fileName: protoFileName,
		content:  eventsProto,
	}

	compiler := protocompile.Compiler{
		Resolver:       protocompile.WithStandardImports(resolver),
		SourceInfoMode: protocompile.SourceInfoNone,
	}

	files, err := compiler.Compile(ctx, protoFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile proto: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files compiled")
	}

	fd := files[0]
	s := &Schema{
		File:          fd,
		ServerMessage: fd.Messages().ByName("ServerMessage"),
		ClientMessage: fd.Messages().ByName("ClientMessage"),
	}
	if s.ServerMessage == nil || s.ClientMessage == nil {
		return nil, fmt.Errorf("proto is missing ServerMessage or ClientMessage")
	}
	return s, nil
}

// singleFileResolver serves the embedded proto to the compiler.
type singleFileResolver struct {
	fileName string
	content  string
}

func (r *singleFileResolver) FindFileByPath(path string) (protocompile.SearchResult, error) {
	if path == r.fileName {
		return protocompile.SearchResult{
			Source: strings.NewReader(r.content),
		}, nil
	}
	return protocompile.SearchResult{}, fmt.Errorf("file not found: %s", path)
}
