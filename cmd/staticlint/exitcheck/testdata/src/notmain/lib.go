package notmain

import (
	"log"
	"os"
)

func main() {
	os.Exit(1)
}

func Must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
