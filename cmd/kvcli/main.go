// Command kvcli is a small demo client: set a key, subscribe to its
// table's topic, publish a value, observe it arrive, then unsubscribe and
// confirm the subscription stream exits. Grounded in the upstream's
// examples/client.rs demo flow, translated onto pkg/kvclient's
// Conn/Stream/StreamResult API.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"odin-kv-server/internal/muxsession"
	"odin-kv-server/internal/wire"
	"odin-kv-server/pkg/kvclient"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9527", "kvserver address")
	topic := flag.String("topic", "t1", "topic/table name used for the demo")
	flag.Parse()

	conn, err := kvclient.Dial(*addr, muxsession.Config{})
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	setStream, err := conn.OpenStream()
	if err != nil {
		log.Fatalf("open stream: %v", err)
	}
	res, err := setStream.ExecuteUnary(wire.NewHset(*topic, wire.KvPair{Key: "k1", Value: wire.StringValue("v1")}))
	setStream.Close()
	if err != nil {
		log.Fatalf("hset: %v", err)
	}
	fmt.Printf("hset res = %+v\n", res)

	subStream, err := conn.OpenStream()
	if err != nil {
		log.Fatalf("open stream: %v", err)
	}
	result, err := subStream.ExecuteStreaming(wire.NewSubscribe(*topic))
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	fmt.Printf("subscribed, id = %d\n", result.ID)

	go func() {
		time.Sleep(1 * time.Second)
		if err := conn.Publish(*topic, []wire.Value{wire.IntValue(0), wire.IntValue(1)}); err != nil {
			log.Printf("publish: %v", err)
		}
	}()

	if data, ok, err := result.Recv(); err != nil {
		log.Fatalf("recv: %v", err)
	} else if ok {
		fmt.Printf("published data = %+v\n", data)
	}

	go func() {
		time.Sleep(1 * time.Second)
		if err := conn.Unsubscribe(*topic, result.ID); err != nil {
			log.Printf("unsubscribe: %v", err)
		}
	}()

	if data, ok, err := result.Recv(); err != nil {
		log.Fatalf("recv: %v", err)
	} else {
		fmt.Printf("exit = %v, data = %+v\n", !ok, data)
	}

	result.Close()
}
