// Copyright 2026 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command grpc wires the folding interceptors into a small Greeter service
// and exercises a client call. Each handled RPC becomes one log entry.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	pb "google.golang.org/grpc/examples/helloworld/helloworld"

	"github.com/pjscruggs/slogfold"
	foldgrpc "github.com/pjscruggs/slogfold/grpc"
)

type greeterServer struct {
	pb.UnimplementedGreeterServer
}

// SayHello logs into the call's scope; the lines appear inside the RPC's
// folded entry rather than as entries of their own.
func (s *greeterServer) SayHello(ctx context.Context, req *pb.HelloRequest) (*pb.HelloReply, error) {
	logger := slogfold.Logger(ctx)
	logger.InfoContext(ctx, "greeting", slog.String("name", req.GetName()))
	return &pb.HelloReply{Message: "Hello " + req.GetName()}, nil
}

func main() {
	handler := slogfold.New(slogfold.WithLoggerName("grpc-example"))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listener error: %v", err)
	}

	server := grpc.NewServer(foldgrpc.ServerOptions(handler)...)
	pb.RegisterGreeterServer(server, &greeterServer{})

	go func() {
		if serveErr := server.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			log.Printf("grpc server error: %v", serveErr)
		}
	}()

	dialOptions := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		foldgrpc.DialOptions()...,
	)
	conn, err := grpc.NewClient(lis.Addr().String(), dialOptions...)
	if err != nil {
		log.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := pb.NewGreeterClient(conn)
	resp, err := client.SayHello(ctx, &pb.HelloRequest{Name: "slogfold"})
	if err != nil {
		log.Fatalf("SayHello error: %v", err)
	}
	log.Printf("response: %s", resp.GetMessage())

	server.GracefulStop()
}
