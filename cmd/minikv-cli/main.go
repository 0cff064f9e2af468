package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minikv/minikv/internal/config"
	"github.com/minikv/minikv/internal/protocol"
)

var rootCmd = &cobra.Command{
	Use:   "minikv-cli",
	Short: "Interactive minikv client",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("host", config.DefaultHost, "server host")
	rootCmd.Flags().Int("port", config.DefaultPort, "server port")
}

func run(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	r := protocol.NewReader(conn)
	w := protocol.NewWriter(conn)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> ", addr)
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], "quit") || strings.EqualFold(fields[0], "exit") {
			return nil
		}

		tokens := make([]protocol.Value, len(fields))
		for i, f := range fields {
			tokens[i] = protocol.BulkString(f)
		}
		if err := w.WriteValue(protocol.ArrayValue(tokens...)); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		res, err := r.ReadValue()
		if err != nil {
			return fmt.Errorf("server closed the connection: %w", err)
		}
		printValue(res, "")
	}
}

// printValue renders a response the way redis-cli does: scalars on one line,
// arrays and maps as numbered entries.
func printValue(v protocol.Value, indent string) {
	switch {
	case v.Null:
		fmt.Printf("%s(nil)\n", indent)
	case v.Type == protocol.TypeInteger:
		fmt.Printf("%s(integer) %d\n", indent, v.Num)
	case v.Type == protocol.TypeError:
		fmt.Printf("%s(error) %s\n", indent, v.Str)
	case v.Type == protocol.TypeArray:
		if len(v.Array) == 0 {
			fmt.Printf("%s(empty list)\n", indent)
			return
		}
		for i, item := range v.Array {
			fmt.Printf("%s%d) ", indent, i+1)
			printValue(item, "")
		}
	case v.Type == protocol.TypeMap:
		if len(v.Pairs) == 0 {
			fmt.Printf("%s(empty map)\n", indent)
			return
		}
		for i, pair := range v.Pairs {
			fmt.Printf("%s%d# %s => ", indent, i+1, pair.Key.Text())
			printValue(pair.Value, "")
		}
	default:
		fmt.Printf("%s%s\n", indent, strconv.Quote(v.Str))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
