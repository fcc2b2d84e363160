package editor

import (
	"os"

	"github.com/google/vroom/internal"
)

// bootstrapScript is sourced into the editor at startup. It defines the
// hidden functions the harness drives the session through and keeps tests
// from littering the filesystem with swap files.
const bootstrapScript = `" Prevents your tests from doing nasty things to your system.
set noswapfile

" Hidden function to execute a command and return the output.
" Useful for :messages
function! VroomExecute(command)
  redir => l:output
  silent! execute a:command
  redir end
  return l:output
endfunction

" Hidden function to reset a test.
function! VroomClear()
  stopinsert
  silent! bufdo! bdelete!
endfunction

" Hidden function to dump an error into the editor.
function! VroomDie(output)
  let g:vroom_error = a:output
  let g:vroom_error .= "\n:tabedit $VROOMFILE to edit the test file."
  let g:vroom_error .= "\nThis output is saved in g:vroom_error."
  let g:vroom_error .= "\nQuit vim when you're done."
  echo g:vroom_error
endfunction

" Hidden function to kill vim, independent of insert mode.
function! VroomEnd()
  qa!
endfunction
`

// Bootstrap is the helper-script resource written once per run and removed on
// shutdown. It is owned by whoever constructs it; nothing here happens at
// package load time.
type Bootstrap struct {
	path string
}

// NewBootstrap writes the bootstrap script to a uniquely named temp file.
func NewBootstrap() (*Bootstrap, error) {
	f, err := os.CreateTemp("", internal.GenerateUniqueSlug("vroom-bootstrap-")+"-*.vim")
	if err != nil {
		return nil, err
	}
	if _, err := f.WriteString(bootstrapScript); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, err
	}
	return &Bootstrap{path: f.Name()}, nil
}

// Path returns the script's location on disk.
func (b *Bootstrap) Path() string {
	return b.path
}

// Close removes the script. It is safe to call more than once.
func (b *Bootstrap) Close() error {
	if b.path == "" {
		return nil
	}
	path := b.path
	b.path = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
