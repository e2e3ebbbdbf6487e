// Package xmpp содержит минимальную объектную модель XML элементов с
// поддержкой пространств имен и таблицы квалифицированных имен для описаний
// "phone" и "video". Адреса XMPP представлены пакетом mellium.im/xmpp/jid.
package xmpp

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// QName квалифицированное имя элемента или атрибута
type QName = xml.Name

// Element узел XML дерева.
// Атрибуты хранятся в порядке добавления, что делает сериализацию детерминированной.
type Element struct {
	Name     QName
	Attrs    []xml.Attr
	Children []*Element
	Text     string
}

// NewElement создает пустой элемент
func NewElement(name QName) *Element {
	return &Element{Name: name}
}

// HasAttr проверяет наличие атрибута
func (e *Element) HasAttr(name QName) bool {
	for _, a := range e.Attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Attr возвращает значение атрибута или пустую строку
func (e *Element) Attr(name QName) string {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// SetAttr добавляет атрибут или заменяет значение существующего
func (e *Element) SetAttr(name QName, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, xml.Attr{Name: name, Value: value})
}

// AddElement добавляет дочерний элемент
func (e *Element) AddElement(child *Element) {
	e.Children = append(e.Children, child)
}

// FirstNamed возвращает первый дочерний элемент с указанным именем или nil
func (e *Element) FirstNamed(name QName) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ElementsNamed возвращает все дочерние элементы с указанным именем
func (e *Element) ElementsNamed(name QName) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// BodyText возвращает текстовое содержимое элемента
func (e *Element) BodyText() string {
	return e.Text
}

// SetBodyText заменяет текстовое содержимое элемента
func (e *Element) SetBodyText(text string) {
	e.Text = text
}

// Marshal сериализует элемент в XML
func (e *Element) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := e.encode(enc); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Element) String() string {
	data, err := e.Marshal()
	if err != nil {
		return fmt.Sprintf("<!-- %v -->", err)
	}
	return string(data)
}

func (e *Element) encode(enc *xml.Encoder) error {
	start := xml.StartElement{Name: e.Name, Attr: e.Attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if e.Text != "" {
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := c.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: e.Name})
}

// ErrEmptyDocument документ не содержит корневого элемента
var ErrEmptyDocument = errors.New("xml document has no root element")

// Parse разбирает XML документ в дерево элементов.
// Пространства имен разрешаются декодером, объявления xmlns в атрибуты не попадают.
func Parse(data []byte) (*Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var stack []*Element
	var root *Element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name}
			for _, a := range t.Attr {
				if isNamespaceDecl(a.Name) {
					continue
				}
				el.Attrs = append(el.Attrs, a)
			}
			if len(stack) > 0 {
				stack[len(stack)-1].AddElement(el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				text := strings.TrimSpace(string(t))
				if text != "" {
					stack[len(stack)-1].Text += text
				}
			}
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

func isNamespaceDecl(name QName) bool {
	return (name.Space == "" && name.Local == "xmlns") || name.Space == "xmlns"
}
