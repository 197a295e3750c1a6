package directory

import "strings"

// Record хранит имя студента и его курсы в порядке записи.
type Record struct {
	Name    string
	Classes []string
}

// Entry связывает непрозрачный идентификатор с записью.
type Entry struct {
	ID     string
	Record Record
}

// Directory хранит справочник студентов. Заполняется один раз при старте и дальше
// только читается, поэтому безопасен для конкурентного чтения без блокировок.
type Directory struct {
	ids     []string
	records map[string]Record
}

// New строит справочник из записей. Повтор ID заменяет запись, сохраняя позицию первой.
func New(entries ...Entry) *Directory {
	d := &Directory{records: make(map[string]Record, len(entries))}
	for _, e := range entries {
		if _, ok := d.records[e.ID]; !ok {
			d.ids = append(d.ids, e.ID)
		}
		classes := make([]string, len(e.Record.Classes))
		copy(classes, e.Record.Classes)
		d.records[e.ID] = Record{Name: e.Record.Name, Classes: classes}
	}
	return d
}

func (d *Directory) Len() int { return len(d.ids) }

// Format рендерит справочник для промпта:
//
//	Student Name: <name>
//	Enrolled Classes: <class1>, <class2>
//
// записи разделены пустой строкой. Данные доверенные, экранирования нет.
func (d *Directory) Format() string {
	parts := make([]string, 0, len(d.ids))
	for _, id := range d.ids {
		r := d.records[id]
		parts = append(parts, "Student Name: "+r.Name+"\nEnrolled Classes: "+strings.Join(r.Classes, ", "))
	}
	return strings.Join(parts, "\n\n")
}

// Default возвращает встроенную таблицу студентов, с которой стартуют бинарники.
func Default() *Directory {
	return New(
		Entry{ID: "S1001", Record: Record{
			Name:    "Alice Johnson",
			Classes: []string{"Calculus I", "Introduction to Psychology", "English Composition"},
		}},
		Entry{ID: "S1002", Record: Record{
			Name:    "Brian Lee",
			Classes: []string{"Data Structures", "Linear Algebra", "Technical Writing"},
		}},
		Entry{ID: "S1003", Record: Record{
			Name:    "Carmen Diaz",
			Classes: []string{"Organic Chemistry", "Cell Biology", "Statistics"},
		}},
		Entry{ID: "S1004", Record: Record{
			Name:    "Daniel Okafor",
			Classes: []string{"Microeconomics", "World History", "Spanish II"},
		}},
	)
}
