package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/tools"
	"github.com/user/trialchat/internal/trials"
)

// SearchOptions configures a direct study search
type SearchOptions struct {
	Query    string
	PageSize int
	Out      io.Writer
}

// SearchHandler runs study_search without a model
type SearchHandler struct {
	*BaseHandler
	opts SearchOptions
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(cfg *config.Config, logger *logging.Logger, opts SearchOptions) *SearchHandler {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.PageSize <= 0 {
		opts.PageSize = trials.DefaultPageSize
	}
	return &SearchHandler{
		BaseHandler: NewBaseHandler(cfg, logger),
		opts:        opts,
	}
}

// Handle prints the search summary as indented JSON
func (h *SearchHandler) Handle(ctx context.Context) error {
	rt, err := NewRuntime(ctx, h.Config, h.Logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	summary, err := rt.Trials.Search(ctx, h.opts.Query, h.opts.PageSize)
	if err != nil {
		return err
	}
	return writeJSON(h.opts.Out, summary)
}

// FieldOptions configures a direct field lookup
type FieldOptions struct {
	NCTIDs string
	Field  string
	List   bool // print the field names instead
	Out    io.Writer
}

// FieldHandler runs get_field_info without a model
type FieldHandler struct {
	*BaseHandler
	opts FieldOptions
}

// NewFieldHandler creates a new field handler
func NewFieldHandler(cfg *config.Config, logger *logging.Logger, opts FieldOptions) *FieldHandler {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &FieldHandler{
		BaseHandler: NewBaseHandler(cfg, logger),
		opts:        opts,
	}
}

// Handle prints the field information of every identifier
func (h *FieldHandler) Handle(ctx context.Context) error {
	if h.opts.List {
		for _, f := range trials.Fields() {
			_, _ = fmt.Fprintf(h.opts.Out, "%-22s %s\n", f.Name, f.Path)
		}
		return nil
	}
	if _, ok := trials.LookupField(h.opts.Field); !ok {
		return errors.NewError(trials.InvalidFieldMessage(h.opts.Field), errors.ExitValidationError)
	}
	if len(trials.SplitIDs(h.opts.NCTIDs)) == 0 {
		return errors.NewError("At least one NCT identifier is required", errors.ExitValidationError)
	}

	rt, err := NewRuntime(ctx, h.Config, h.Logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	return writeJSON(h.opts.Out, rt.Trials.GetFieldInfo(ctx, h.opts.NCTIDs, h.opts.Field))
}

// writeJSON prints v the way functions serialize it, indented for reading
func writeJSON(w io.Writer, v interface{}) error {
	encoded, err := tools.EncodeResult(v)
	if err != nil {
		return errors.WrapError(err, "failed to encode result", errors.ExitGeneralError)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(encoded), "", "  "); err != nil {
		return errors.WrapError(err, "failed to format result", errors.ExitGeneralError)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(w)
	return err
}
