// Command snusbase runs one Snusbase lookup and prints the API's JSON answer.
//
//	snusbase search alice --type username
//	snusbase search '%@example.com' --type email --wildcard
//	snusbase hash 5f4dcc3b5aa765d61d8327deb882cf99
//	snusbase ip 1.1.1.1
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
