// ze-abstract rebuilds the plain text of an abstract from an OpenAlex style
// inverted index read from stdin.
//
//	$ echo '{"Hello":[0,3],"world":[1]}' | ze-abstract
//	Hello world Hello
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/segmentio/encoding/json"

	zoteroenhancer "github.com/bzuer/zoteroEhancer"
	"github.com/bzuer/zoteroEhancer/merge"
)

var showVersion = flag.Bool("version", false, "show version")

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(zoteroenhancer.Version)
		os.Exit(0)
	}
	var index map[string][]int
	if err := json.NewDecoder(bufio.NewReader(os.Stdin)).Decode(&index); err != nil {
		log.Fatalf("reading inverted index: %v", err)
	}
	fmt.Println(merge.ReconstructAbstract(index))
}
