package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/testenv"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var storageOnly bool
	flag.BoolVar(&storageOnly, "s", false, "start MinIO only, even when DB_IMAGE is set")
	flag.Parse()

	usage := `
Run the CRM testcontainers (MinIO, plus a database when DB_IMAGE is set)
with the environment variables from the .env file. Prints the STORAGE_* and DB_*
settings a locally started server needs.

Usage:

testcontainers [-h] [-s] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file
-s: start MinIO only

example
  testcontainers -f /path/to/something/.env
  STORAGE_BUCKET=crm-dev testcontainers -s
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	started := make(chan *testenv.TestContainers, 1)
	go func() {
		start := testenv.CreateAllTestContainers
		if storageOnly {
			start = testenv.StartMinIO
		}
		testContainers, err := start(nil)
		if err != nil {
			log.Fatalf("Failed to create test containers: %v\n", err)
		}
		if err := createBucket(testContainers); err != nil {
			log.Printf("Failed to create bucket: %v\n", err)
		}
		started <- testContainers
	}()

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating test containers...\n", sig)
	select {
	case testContainers := <-started:
		testContainers.Terminate(nil)
	default:
		log.Printf("Containers were still starting, the reaper will remove them\n")
	}
}

// createBucket makes STORAGE_BUCKET on the fresh MinIO volume.
func createBucket(testContainers *testenv.TestContainers) error {
	name := os.Getenv("STORAGE_BUCKET")
	if name == "" {
		return nil
	}
	ctx := context.Background()
	bucket, err := storage.NewS3Bucket(ctx, storage.S3Config{
		Bucket:          name,
		Endpoint:        testContainers.StorageEndpoint,
		AccessKeyID:     testenv.AccessKey(),
		SecretAccessKey: testenv.SecretKey(),
		PathStyle:       true,
	})
	if err != nil {
		return err
	}
	if err := bucket.EnsureBucket(ctx); err != nil {
		return err
	}
	log.Printf("Bucket %s ready\n", name)
	return nil
}
