// Command grippctl calls the Gripp API from the command line.
//
//	grippctl call company.get '[[],{"paging":{"firstresult":0,"maxresults":5}}]'
//	grippctl paginate task.get --page-size 100
//	grippctl batch calls.json
//	grippctl find company 123
//
// The token and base URL come from --token/--url, a --config YAML file, a .env
// file or the GRIPP_API_TOKEN and GRIPP_API_URL environment variables.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mnehpets/gripp/jsonrpc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error kinds onto distinct process exit codes.
func exitCode(err error) int {
	var apiErr jsonrpc.Error
	if !errors.As(err, &apiErr) {
		return 1
	}
	switch apiErr.Kind() {
	case jsonrpc.KindConfiguration:
		return 2
	case jsonrpc.KindAuthentication:
		return 3
	case jsonrpc.KindRateLimit:
		return 4
	}
	return 1
}
