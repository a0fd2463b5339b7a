// Package instructions holds the operation stream fed to the memory manager:
// the op model, the text lexer, a seeded random generator and the cursor
// that gives the optimal policy its view of upcoming operations.
package instructions

import (
	"fmt"
	"strings"

	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
)

// OpType defines the kind of instruction.
type OpType string

const (
	OpNew    OpType = "new"    // new(pid,size)
	OpUse    OpType = "use"    // use(ptr)
	OpDelete OpType = "delete" // delete(ptr)
	OpKill   OpType = "kill"   // kill(pid)
)

// Op is one instruction of the stream. Only the fields of its type are set.
type Op struct {
	Type OpType                `json:"type"`
	PID  pagemanager.ProcessID `json:"pid,omitempty"`
	Size int                   `json:"size,omitempty"`
	Ptr  pagemanager.PointerID `json:"ptr,omitempty"`
}

func New(pid pagemanager.ProcessID, size int) Op { return Op{Type: OpNew, PID: pid, Size: size} }
func Use(ptr pagemanager.PointerID) Op           { return Op{Type: OpUse, Ptr: ptr} }
func Delete(ptr pagemanager.PointerID) Op        { return Op{Type: OpDelete, Ptr: ptr} }
func Kill(pid pagemanager.ProcessID) Op          { return Op{Type: OpKill, PID: pid} }

// String renders the op in the instruction language.
func (o Op) String() string {
	switch o.Type {
	case OpNew:
		return fmt.Sprintf("new(%d,%d)", o.PID, o.Size)
	case OpUse:
		return fmt.Sprintf("use(%d)", o.Ptr)
	case OpDelete:
		return fmt.Sprintf("delete(%d)", o.Ptr)
	case OpKill:
		return fmt.Sprintf("kill(%d)", o.PID)
	default:
		return fmt.Sprintf("unknown(%s)", string(o.Type))
	}
}

// Format renders ops one per line, the inverse of Parse.
func Format(ops []Op) string {
	var b strings.Builder
	for i, op := range ops {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(op.String())
	}
	return b.String()
}
