// Package b2 is a client for the Backblaze B2 native API.
//
// A Client is created with credentials and authorized once; every other
// action uses the token, API URL and download URL that Authorize stored:
//
//	client := b2.New(b2.Credentials{
//		ApplicationKeyID: os.Getenv("B2_APPLICATION_KEY_ID"),
//		ApplicationKey:   os.Getenv("B2_APPLICATION_KEY"),
//	})
//	if _, err := client.Authorize(ctx); err != nil {
//		return err
//	}
//
//	target, err := client.GetUploadURL(ctx, b2.BucketID(bucketID))
//	if err != nil {
//		return err
//	}
//	file, err := client.UploadFile(ctx, b2.UploadFileArgs{
//		UploadURL:       target.UploadURL,
//		UploadAuthToken: target.AuthorizationToken,
//		FileName:        "photos/cat.png",
//		Data:            data,
//		Info:            map[string]string{"src_last_modified_millis": "1700000000000"},
//	})
//
// Every action accepts CallOptions (see package transport) that adjust the
// request it sends: extra headers or body fields, a timeout, progress
// callbacks. Errors from the HTTP layer and non-2xx responses are returned as
// produced by the executor; API errors are *errors.B2Error values carrying
// the HTTP status and B2 error code.
//
// Nothing is retried unless the executor does it. NewFromConfig builds an
// executor with retry, circuit breaking and metrics as configured.
package b2
