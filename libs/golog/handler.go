package golog

import "io"

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(e *Entry) error

func (h HandlerFunc) Log(e *Entry) error {
	return h(e)
}

// IOHandler writes formatted entries to out, with WARN and above going to err.
func IOHandler(out, err io.Writer, fmtr Formatter) Handler {
	return &ioHandler{out: out, err: err, fmtr: fmtr}
}

// WriterHandler writes all formatted entries to a single writer.
func WriterHandler(w io.Writer, fmtr Formatter) Handler {
	return &ioHandler{out: w, err: w, fmtr: fmtr}
}

type ioHandler struct {
	out, err io.Writer
	fmtr     Formatter
}

func (o *ioHandler) Log(e *Entry) error {
	m := o.fmtr.Format(e)
	if e.Lvl <= WARN {
		_, err := o.err.Write(m)
		return err
	}
	_, err := o.out.Write(m)
	return err
}
