package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	"github.com/tendant/simple-oss/pkg/simpleoss/api"
	"github.com/tendant/simple-oss/pkg/simpleoss/httpfetch"
	"github.com/tendant/simple-oss/pkg/simpleoss/objectkey"
	"github.com/tendant/simple-oss/pkg/simpleoss/rules"
)

func (c *cli) newSignCommand() *cobra.Command {
	var ttl time.Duration
	var method string
	var upload bool
	var noPrefix bool

	cmd := &cobra.Command{
		Use:   "sign <path-or-url>",
		Short: "Print a signed URL for an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := c.client()
			if err != nil {
				return err
			}
			var opts []simpleoss.CallOption
			if noPrefix {
				opts = append(opts, simpleoss.WithoutPrefix())
			}
			method = strings.ToUpper(method)

			var signed string
			if upload {
				signed, err = adapter.AuthUploadURL(cmd.Context(), args[0], ttl, method, opts...)
			} else {
				signed, err = adapter.SignURL(cmd.Context(), args[0], ttl, method, opts...)
			}
			if err != nil {
				return fmt.Errorf("sign failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", simpleoss.DefaultURLTTL, "URL lifetime")
	cmd.Flags().StringVarP(&method, "method", "m", http.MethodGet, "HTTP method the URL is valid for")
	cmd.Flags().BoolVar(&upload, "upload", false, "sign against the upload domain")
	cmd.Flags().BoolVar(&noPrefix, "no-prefix", false, "do not apply the disk prefix")

	return cmd
}

func (c *cli) newUploadURLCommand() *cobra.Command {
	var prefix, suffix string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "upload-url",
		Short: "Issue a new object key and a signed upload URL for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := c.client()
			if err != nil {
				return err
			}

			path := objectkey.NewRecommendedGenerator().GenerateKey(&objectkey.KeyMetadata{Prefix: prefix, Suffix: suffix})
			url, err := adapter.CanonicalURL(cmd.Context(), path)
			if err != nil {
				return err
			}
			forbid := simpleoss.ForbidOverwriteOptions()
			action, err := adapter.AuthUploadURL(cmd.Context(), path, ttl, http.MethodPut, simpleoss.WithObjectOptions(forbid))
			if err != nil {
				return fmt.Errorf("sign failed: %w", err)
			}

			return printJSON(cmd, api.UploadURLData{
				Path:    path,
				URL:     url,
				Action:  action,
				Method:  http.MethodPut,
				Headers: forbid.Headers,
			})
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix")
	cmd.Flags().StringVar(&suffix, "suffix", "", "key suffix, usually the file name")
	cmd.Flags().DurationVar(&ttl, "ttl", api.DefaultUploadTTL, "upload URL lifetime")

	return cmd
}

func (c *cli) newUploadCommand() *cobra.Command {
	var prefix string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local file through a signed upload URL",
		Long: `Issue a new object key for the file, upload it through a signed,
overwrite-protected PUT URL and print the resulting object URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := c.client()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			path := objectkey.NewRecommendedGenerator().GenerateKey(&objectkey.KeyMetadata{
				Prefix: prefix,
				Suffix: filepath.Base(args[0]),
			})
			forbid := simpleoss.ForbidOverwriteOptions()
			action, err := adapter.AuthUploadURL(cmd.Context(), path, ttl, http.MethodPut, simpleoss.WithObjectOptions(forbid))
			if err != nil {
				return fmt.Errorf("sign failed: %w", err)
			}

			var opts []httpfetch.ClientOption
			if c.verbose {
				opts = append(opts, httpfetch.WithProgress(func(n int64) {
					fmt.Fprintf(cmd.ErrOrStderr(), "\ruploaded %d bytes", n)
				}))
			}
			if err := httpfetch.NewClient(opts...).Upload(cmd.Context(), action, f, httpfetch.WithHeaders(forbid.Headers)); err != nil {
				return err
			}

			url, err := adapter.CanonicalURL(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix")
	cmd.Flags().DurationVar(&ttl, "ttl", api.DefaultUploadTTL, "upload URL lifetime")

	return cmd
}

func (c *cli) newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>",
		Short: "Print which bucket domain a URL is on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := c.client()
			if err != nil {
				return err
			}
			kind := adapter.Classify(args[0])
			return printJSON(cmd, api.ClassifyData{
				DomainType:  kind.String(),
				IsBucketURL: kind != simpleoss.DomainNone,
			})
		},
	}
}

func (c *cli) newValidateCommand() *cobra.Command {
	var req api.ValidateRequest
	var checkExists bool
	var minSize, maxSize int64
	var maxFilename int

	cmd := &cobra.Command{
		Use:   "validate <url>",
		Short: "Check a URL against a rule",
		Long: `Check a URL against a rule built from the flags.

Exits with an error when the URL does not pass; the reason is printed either way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.URL = args[0]
			req.Client = c.disk
			req.CheckExists = &checkExists
			if cmd.Flags().Changed("min-size") {
				req.MinSize = &minSize
			}
			if cmd.Flags().Changed("max-size") {
				req.MaxSize = &maxSize
			}
			if cmd.Flags().Changed("filename-max-length") {
				req.FilenameMaxLength = &maxFilename
			}

			rule, err := req.BuildRule(c.registry)
			if err != nil {
				return err
			}
			var message string
			if err := rule.Validate(cmd.Context(), "url", req.URL, func(msg string) { message = msg }); err != nil {
				return err
			}

			data := api.ValidateData{
				Passes:     rule.FailedReason() == rules.ReasonNone,
				Reason:     rule.FailedReason().String(),
				Message:    message,
				DomainType: rule.DetectedDomainType().String(),
				Path:       rule.Path(),
			}
			if attrs, ok := rule.FileAttributes(); ok {
				mt := attrs.MimeType
				data.MimeType = &mt
				if size, ok := attrs.Size(); ok {
					data.Size = &size
				}
			}
			if err := printJSON(cmd, data); err != nil {
				return err
			}
			if !data.Passes {
				return fmt.Errorf("validation failed: %s", data.Reason)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkExists, "check-exists", true, "require the object to exist")
	cmd.Flags().StringSliceVar(&req.Domains, "domains", nil, "allowed domain types (cdn, upload, oss, oss_internal)")
	cmd.Flags().Int64Var(&minSize, "min-size", 0, "minimum size in bytes")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "maximum size in bytes")
	cmd.Flags().StringVar(&req.Preset, "preset", "", "mime type preset (image, video, audio, media, document, pdf, excel, word, ppt, archive, text, json, xml)")
	cmd.Flags().StringSliceVar(&req.MimeTypes, "mime-types", nil, "allowed mime types, wildcards like image/* allowed")
	cmd.Flags().StringSliceVar(&req.Extensions, "extensions", nil, "allowed extensions")
	cmd.Flags().StringSliceVar(&req.ExceptExtensions, "except-extensions", nil, "forbidden extensions")
	cmd.Flags().StringSliceVar(&req.Directories, "directories", nil, "allowed directories")
	cmd.Flags().StringSliceVar(&req.ExceptDirectories, "except-directories", nil, "forbidden directories")
	cmd.Flags().IntVar(&maxFilename, "filename-max-length", 0, "maximum filename length in characters")

	return cmd
}

func (c *cli) newMetaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "meta <url>",
		Short: "Print mime type and size of the object behind a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, ok := simpleoss.ParseURL(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", simpleoss.ErrInvalidURL, args[0])
			}
			adapter, err := c.client()
			if err != nil {
				return err
			}

			data := api.MetaData{Status: http.StatusOK}
			attrs, err := adapter.GetFileAttributes(cmd.Context(), u.Path, simpleoss.WithoutPrefix())
			if err != nil {
				if data.Status = simpleoss.StatusCode(err); data.Status == 0 {
					return err
				}
			} else {
				mt := attrs.MimeType
				data.MimeType = &mt
				if size, ok := attrs.Size(); ok {
					data.Size = &size
				}
			}
			return printJSON(cmd, data)
		},
	}
}

func (c *cli) newPutURLCommand() *cobra.Command {
	var previous, dir string

	cmd := &cobra.Command{
		Use:   "put-url <url>",
		Short: "Copy a remote file into the disk unless it is already there",
		Long: `Copy a remote file into the disk and print its bucket URL.

When --previous already points at the copy, nothing is downloaded and
--previous is printed unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := c.client()
			if err != nil {
				return err
			}
			got, err := adapter.PutURLIfChanged(cmd.Context(), args[0], previous, dir)
			if err != nil {
				return fmt.Errorf("put-url failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), got)
			return nil
		},
	}

	cmd.Flags().StringVar(&previous, "previous", "", "URL stored from an earlier copy")
	cmd.Flags().StringVar(&dir, "dir", "", "directory to copy into")

	return cmd
}

func (c *cli) newPutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <file> <path>",
		Short: "Upload a local file and print its URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := c.client()
			if err != nil {
				return err
			}
			url, err := adapter.PutFileAndReturnURL(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	return cmd
}

func (c *cli) newGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <path> <file>",
		Short: "Download an object to a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := c.client()
			if err != nil {
				return err
			}
			if err := adapter.Download(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("download failed: %w", err)
			}
			if c.verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "Downloaded %s to %s\n", args[0], args[1])
			}
			return nil
		},
	}
	return cmd
}
