package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/taskdeck/taskdeck/internal/api"
)

// PlainIO implements IO using plain terminal output (fmt.Print / bufio.Scanner).
// It is used when --plain is set or the terminal does not support raw mode.
type PlainIO struct {
	scanner        *bufio.Scanner
	conversationID int64
}

// NewPlainIO creates a PlainIO that reads from stdin.
func NewPlainIO() *PlainIO {
	s := bufio.NewScanner(os.Stdin)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return &PlainIO{scanner: s}
}

func (p *PlainIO) ReadInput() (string, error) {
	if p.conversationID != 0 {
		fmt.Printf("\n[#%d] > ", p.conversationID)
	} else {
		fmt.Print("\n> ")
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

func (p *PlainIO) UserMessage(_ string) {
	// Plain terminal: the user already sees what they typed.
}

func (p *PlainIO) SendStart() {
	fmt.Println() // blank line before the reply begins
}

func (p *PlainIO) AssistantMessage(text string) {
	fmt.Println(text)
}

func (p *PlainIO) SystemMessage(text string) {
	fmt.Println(text)
}

func (p *PlainIO) Error(msg string) {
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
}

func (p *PlainIO) SetConversation(id int64) {
	p.conversationID = id
}

func (p *PlainIO) TaskTable(tasks []api.Task) {
	if len(tasks) == 0 {
		fmt.Println("No tasks yet.")
		return
	}
	for _, t := range tasks {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		fmt.Printf("  %s #%d %s\n", mark, t.ID, t.Title)
	}
}

func (p *PlainIO) PickConversation(convs []api.Conversation) (int64, error) {
	fmt.Println("\nConversations:")
	for i, c := range convs {
		label := strings.TrimSpace(c.Title)
		if label == "" {
			label = fmt.Sprintf("Conversation #%d", c.ID)
		}
		if age := relativeAge(c.UpdatedAt.Time); age != "" {
			label += "  (" + age + ")"
		}
		fmt.Printf("  %d. %s\n", i+1, label)
	}
	fmt.Print("Enter number (blank to cancel): ")
	if !p.scanner.Scan() {
		return 0, fmt.Errorf("cancelled")
	}
	answer := strings.TrimSpace(p.scanner.Text())
	if answer == "" {
		return 0, fmt.Errorf("cancelled")
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(convs) {
		return 0, fmt.Errorf("cancelled")
	}
	return convs[n-1].ID, nil
}
