// riocctl is a minimal reference implementation of a command-line client
// for the key-value store: one subcommand per synchronous operation, plus a
// batch mode driven from a newline-delimited command file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/hpkv-io/rioc/client"
	"github.com/hpkv-io/rioc/export"
	"github.com/hpkv-io/rioc/status"
	"github.com/hpkv-io/rioc/transport"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	host       = flag.String("host", "localhost", "Store host to connect to.")
	port       = flag.Int("port", 9090, "Store port to connect to.")
	timeoutMs  = flag.Uint("timeout_ms", 5000, "Per-call timeout, in milliseconds. 0 disables the timeout.")
	promPort   = flag.String("prom", "", "Prometheus metrics export address and port, e.g. ':9091'. Empty disables it.")
	tlsCert    = flag.String("tls.cert", "", "Client certificate path. Enables TLS when set.")
	tlsKey     = flag.String("tls.key", "", "Client key path.")
	tlsCA      = flag.String("tls.ca", "", "CA certificate path used to verify the server.")
	tlsServer  = flag.String("tls.server_name", "", "Server name for TLS hostname verification.")
	exportFile = flag.String("export", "", "For the range subcommand, write CSV results to this file instead of stdout.")
	compress   = flag.Bool("compress", false, "Compress -export output through an external zstd process.")
)

func buildConfig() client.Config {
	cfg := client.Config{Host: *host, Port: *port, TimeoutMs: uint32(*timeoutMs)}
	if *tlsCert != "" || *tlsKey != "" || *tlsCA != "" {
		cfg.TLS = &transport.TLSConfig{
			CertPath:       *tlsCert,
			KeyPath:        *tlsKey,
			CAPath:         *tlsCA,
			VerifyHostname: *tlsServer != "",
			VerifyPeer:     *tlsCA != "",
		}
		cfg.ServerName = *tlsServer
	}
	return cfg
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "could not get args from environment variables")

	if *promPort != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		promSrv := prometheusx.MustStartPrometheus(*promPort)
		defer promSrv.Shutdown(ctx)
	}

	args := flag.Args()
	if len(args) < 1 {
		log.Fatal("usage: riocctl <get|insert|delete|range|incdec|batch> ...")
	}

	sess, err := client.Connect(buildConfig())
	rtx.Must(err, "could not connect to %s:%d", *host, *port)
	defer sess.Disconnect()

	switch args[0] {
	case "get":
		runGet(sess, args[1:])
	case "insert":
		runInsert(sess, args[1:])
	case "delete":
		runDelete(sess, args[1:])
	case "range":
		runRange(sess, args[1:])
	case "incdec":
		runIncDec(sess, args[1:])
	case "batch":
		runBatchFile(sess, args[1:])
	default:
		log.Fatalf("unknown subcommand %q", args[0])
	}
}

func runGet(sess *client.Session, args []string) {
	if len(args) != 1 {
		log.Fatal("usage: riocctl get <key>")
	}
	code, val, err := sess.Get([]byte(args[0]))
	rtx.Must(err, "get failed")
	if code != status.Success {
		log.Fatalf("get: %v", code)
	}
	fmt.Println(string(val))
}

func runInsert(sess *client.Session, args []string) {
	if len(args) != 2 {
		log.Fatal("usage: riocctl insert <key> <value>")
	}
	code, err := sess.Insert([]byte(args[0]), []byte(args[1]), 0)
	rtx.Must(err, "insert failed")
	if code != status.Success {
		log.Fatalf("insert: %v", code)
	}
}

func runDelete(sess *client.Session, args []string) {
	if len(args) != 1 {
		log.Fatal("usage: riocctl delete <key>")
	}
	code, err := sess.Delete([]byte(args[0]), 0)
	rtx.Must(err, "delete failed")
	if code != status.Success {
		log.Fatalf("delete: %v", code)
	}
}

func runRange(sess *client.Session, args []string) {
	if len(args) != 2 {
		log.Fatal("usage: riocctl range <start_key> <end_key>")
	}
	code, entries, err := sess.RangeQuery([]byte(args[0]), []byte(args[1]))
	rtx.Must(err, "range query failed")
	if code != status.Success {
		log.Fatalf("range: %v", code)
	}

	if *exportFile == "" {
		rtx.Must(export.WriteCSV(entries, os.Stdout), "could not write CSV to stdout")
		return
	}
	if *compress {
		rtx.Must(export.WriteCompressedCSV(entries, *exportFile), "could not write compressed CSV")
		return
	}
	f, err := os.Create(*exportFile)
	rtx.Must(err, "could not create %q", *exportFile)
	defer f.Close()
	rtx.Must(export.WriteCSV(entries, f), "could not write CSV to %q", *exportFile)
}

func runIncDec(sess *client.Session, args []string) {
	if len(args) != 2 {
		log.Fatal("usage: riocctl incdec <key> <delta>")
	}
	delta, err := strconv.ParseInt(args[1], 10, 64)
	rtx.Must(err, "invalid delta %q", args[1])
	code, val, err := sess.AtomicIncDec([]byte(args[0]), delta, 0)
	rtx.Must(err, "incdec failed")
	if code != status.Success {
		log.Fatalf("incdec: %v", code)
	}
	fmt.Println(val)
}

// runBatchFile reads lines of "op key [value]" from a file (or stdin, with
// "-") and submits them all as one batch.
func runBatchFile(sess *client.Session, args []string) {
	if len(args) != 1 {
		log.Fatal("usage: riocctl batch <file|->")
	}
	src := os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		rtx.Must(err, "could not open %q", args[0])
		defer f.Close()
		src = f
	}

	b := sess.BatchCreate()
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		rtx.Must(addBatchLine(b, fields), "bad batch line %q", scanner.Text())
	}
	rtx.Must(scanner.Err(), "error reading batch file")

	trk, err := sess.BatchSubmitAsync(b)
	rtx.Must(err, "batch submit failed")
	defer sess.BatchRetire(trk)

	code := sess.BatchWait(trk, 0)
	fmt.Println("batch status:", code)
	for i := 0; i < b.Len(); i++ {
		st, payload, _ := sess.BatchResult(trk, i)
		fmt.Printf("  [%d] %v %+v\n", i, st, payload)
	}
}

func addBatchLine(b interface {
	AddGet([]byte) error
	AddInsert([]byte, []byte, uint64) error
	AddDelete([]byte, uint64) error
	AddRangeQuery([]byte, []byte) error
	AddAtomicIncDec([]byte, int64, uint64) error
}, fields []string) error {
	switch fields[0] {
	case "get":
		return b.AddGet([]byte(fields[1]))
	case "insert":
		return b.AddInsert([]byte(fields[1]), []byte(fields[2]), 0)
	case "delete":
		return b.AddDelete([]byte(fields[1]), 0)
	case "range":
		return b.AddRangeQuery([]byte(fields[1]), []byte(fields[2]))
	case "incdec":
		delta, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return err
		}
		return b.AddAtomicIncDec([]byte(fields[1]), delta, 0)
	default:
		return fmt.Errorf("unknown op %q", fields[0])
	}
}
